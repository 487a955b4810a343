package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ztcp-auth/internal/audit/domain"
	"ztcp-auth/internal/telemetry"
)

// Actions recorded by the auth service.
const (
	ActionLoginSuccess    = "login_success"
	ActionLoginFailure    = "login_failure"
	ActionAccountLocked   = "account_locked"
	ActionRefresh         = "refresh"
	ActionRefreshRejected = "refresh_rejected"
	ActionLogout          = "logout"
	// Self-service session management.
	ActionSessionRevoked     = "session_revoked"
	ActionSessionsRevokedAll = "sessions_revoked_all"
)

// ResourceAuth is the resource recorded for auth service events.
const ResourceAuth = "auth"

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// Saver persists audit events. *repository.PostgresRepository implements it.
type Saver interface {
	Save(ctx context.Context, e *domain.AuditEvent) error
}

// AuditLogger writes a single audit event for the auth resource. Used by the auth service.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, principalID, sessionID, action, metadata string)
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) LogEvent(context.Context, string, string, string, string) {}

// Logger implements AuditLogger. Events are saved through repo (when set) and fanned out
// asynchronously to the emitters.
type Logger struct {
	repo        Saver
	emitters    []telemetry.EventEmitter
	ipExtractor IPExtractor
}

// NewLogger returns a Logger that persists to repo and uses ipExtractor for client IP.
// repo and ipExtractor may be nil; then nothing is persisted and IP is recorded as "unknown".
func NewLogger(repo Saver, ipExtractor IPExtractor, emitters ...telemetry.EventEmitter) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitters: emitters}
}

// LogEvent records one auth event. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, principalID, sessionID, action, metadata string) {
	l.Record(ctx, &domain.AuditEvent{
		PrincipalID: principalID,
		SessionID:   sessionID,
		Action:      action,
		Resource:    ResourceAuth,
		Metadata:    metadata,
	})
}

// Record fills in ID, IP and CreatedAt when unset and writes e to every destination.
func (l *Logger) Record(ctx context.Context, e *domain.AuditEvent) {
	if l == nil || e == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.IP == "" {
		e.IP = "unknown"
		if l.ipExtractor != nil {
			e.IP = l.ipExtractor(ctx)
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if l.repo != nil {
		if err := l.repo.Save(ctx, e); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("action", e.Action).Msg("audit: failed to save event")
		}
	}
	for _, em := range l.emitters {
		telemetry.EmitAsync(em, ctx, e)
	}
}
