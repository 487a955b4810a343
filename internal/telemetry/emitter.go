// Package telemetry fans audit events out to external pipelines (OTel logs, Kafka).
package telemetry

import (
	"context"

	"ztcp-auth/internal/audit/domain"
)

// EventEmitter emits audit events to an external pipeline. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuditEvent) error
}
