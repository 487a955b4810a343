package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ztcp-auth/internal/audit/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the servers stop before shutting down OTel providers
// and the Kafka writer, so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// emitter and event may be nil; EmitAsync then returns without starting a goroutine.
// The goroutine does not inherit cancellation from ctx, only its logger.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *domain.AuditEvent) {
	if emitter == nil || event == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			logger.Warn().Err(err).Str("action", event.Action).Msg("telemetry: async emit failed")
		}
	}()
}
