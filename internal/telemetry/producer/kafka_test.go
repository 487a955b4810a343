package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ztcp-auth/internal/audit/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_DisabledWithoutConfig(t *testing.T) {
	p, err := NewKafkaProducer(nil, "auth-events")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewKafkaProducer([]string{"localhost:9092"}, "")
	require.NoError(t, err)
	assert.Nil(t, p)

	var nilProducer *KafkaProducer
	assert.NoError(t, nilProducer.Emit(context.Background(), &domain.AuditEvent{}))
	assert.NoError(t, nilProducer.Close())
}

func TestNewKafkaProducer_Configured(t *testing.T) {
	p, err := NewKafkaProducer([]string{"localhost:9092"}, "auth-events")
	require.NoError(t, err)
	require.NotNil(t, p)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "auth-events", w.Topic)
	assert.NoError(t, p.Close())
}

func TestEmit_WritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "auth-events"}
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.AuditEvent{ID: "e1", PrincipalID: "p1", Action: "account_locked", Resource: "auth", CreatedAt: at}

	require.NoError(t, p.Emit(context.Background(), event))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("p1"), msg.Key)
	assert.Equal(t, at, msg.Time)

	var decoded domain.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "account_locked", decoded.Action)
	assert.Equal(t, "p1", decoded.PrincipalID)
}

func TestEmit_UnkeyedWithoutPrincipal(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "auth-events"}
	require.NoError(t, p.Emit(context.Background(), &domain.AuditEvent{Action: "login_failure"}))
	assert.Nil(t, w.msgs[0].Key)
}

func TestEmit_WriteErrorIsReturned(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := &KafkaProducer{writer: &fakeWriter{err: boom}, topic: "auth-events"}
	err := p.Emit(context.Background(), &domain.AuditEvent{Action: "logout"})
	assert.ErrorIs(t, err, boom)
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
