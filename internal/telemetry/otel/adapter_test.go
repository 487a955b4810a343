package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"ztcp-auth/internal/audit/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.AuditEvent{Action: "logout"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
	n   int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.n++
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.AuditEvent{
		ID:          "e1",
		PrincipalID: "p1",
		SessionID:   "s1",
		Action:      "account_locked",
		Resource:    "auth",
		IP:          "10.0.0.1",
		Metadata:    "threshold=5",
		CreatedAt:   at,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec

	if got := rec.Body().AsString(); got != "threshold=5" {
		t.Errorf("body = %q, want %q", got, "threshold=5")
	}
	if !rec.Timestamp().Equal(at) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), at)
	}
	if rec.EventName() != "account_locked" {
		t.Errorf("event name = %q", rec.EventName())
	}
	if rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want warn", rec.Severity())
	}

	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"audit.id": "e1", "action": "account_locked", "resource": "auth",
		"client_ip": "10.0.0.1", "principal_id": "p1", "session_id": "s1",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_OmitsEmptyIDsAndDefaultsTimestamp(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	if err := em.Emit(context.Background(), &domain.AuditEvent{Action: "login_failure", Resource: "auth"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		if kv.Key == "principal_id" || kv.Key == "session_id" {
			t.Errorf("unexpected attribute %s", kv.Key)
		}
		return true
	})
	if rec.Timestamp().IsZero() {
		t.Error("timestamp should default to now")
	}
	if !rec.Body().Empty() {
		t.Error("body should be empty without metadata")
	}
}
