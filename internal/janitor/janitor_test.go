package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type memStore struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	purged  int64
	err     error
}

func (m *memStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.cutoffs = append(m.cutoffs, before)
	if m.err != nil {
		return 0, m.err
	}
	return m.purged, nil
}

func (m *memStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type sweepRecorder struct {
	mu     sync.Mutex
	purged []int64
	errs   []error
}

func (r *sweepRecorder) ObserveSweep(purged int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged = append(r.purged, purged)
	r.errs = append(r.errs, err)
}

func TestRunOnce_UsesClockAsCutoff(t *testing.T) {
	store := &memStore{purged: 3}
	metrics := &sweepRecorder{}
	j := New(store, time.Minute, metrics, zerolog.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j.clock = func() time.Time { return now }

	n, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []time.Time{now}, store.cutoffs)
	assert.Equal(t, []int64{3}, metrics.purged)
	assert.Equal(t, []error{nil}, metrics.errs)
}

func TestRunOnce_StoreError(t *testing.T) {
	storeErr := errors.New("db: connection reset")
	store := &memStore{err: storeErr}
	metrics := &sweepRecorder{}
	j := New(store, time.Minute, metrics, zerolog.Nop())

	n, err := j.RunOnce(context.Background())
	assert.ErrorIs(t, err, storeErr)
	assert.Zero(t, n)
	require.Len(t, metrics.errs, 1)
	assert.ErrorIs(t, metrics.errs[0], storeErr)
}

func TestRunOnce_NilMetrics(t *testing.T) {
	j := New(&memStore{purged: 1}, time.Minute, nil, zerolog.Nop())
	n, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNew_DefaultInterval(t *testing.T) {
	j := New(&memStore{}, 0, nil, zerolog.Nop())
	assert.Equal(t, DefaultInterval, j.interval)
}

func TestStartStop_SweepsAndExits(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	j := New(store, 5*time.Millisecond, nil, zerolog.Nop())
	j.Start(context.Background())

	require.Eventually(t, func() bool { return store.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	j.Stop()

	calls := store.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, store.callCount(), "no sweeps after Stop")
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &memStore{}
	j := New(store, time.Hour, nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.callCount() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStop_WithoutStart(t *testing.T) {
	j := New(&memStore{}, time.Minute, nil, zerolog.Nop())
	j.Stop()
}
