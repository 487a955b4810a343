package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"ztcp-auth/internal/audit/domain"
	"ztcp-auth/internal/telemetry"
)

// auditLoggerName is the instrumentation scope of audit log records.
const auditLoggerName = "ztcp.auth.audit"

// NewEventEmitter returns an EventEmitter that sends audit events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(auditLoggerName))
}

// recordEmitter is the part of otellog.Logger the emitter uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitterWithLogger returns an EventEmitter that writes to logger.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.AuditEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the audit event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetEventName(event.Action)
	rec.SetSeverity(severityFor(event.Action))
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	if event.Metadata != "" {
		rec.SetBody(otellog.StringValue(event.Metadata))
	}
	rec.AddAttributes(
		otellog.String("audit.id", event.ID),
		otellog.String("action", event.Action),
		otellog.String("resource", event.Resource),
		otellog.String("client_ip", event.IP),
	)
	if event.PrincipalID != "" {
		rec.AddAttributes(otellog.String("principal_id", event.PrincipalID))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	e.logger.Emit(ctx, rec)
	return nil
}

func severityFor(action string) otellog.Severity {
	switch action {
	case "account_locked":
		return otellog.SeverityWarn
	case "login_failure", "refresh_rejected":
		return otellog.SeverityInfo2
	default:
		return otellog.SeverityInfo
	}
}
