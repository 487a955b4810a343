// Package janitor periodically removes expired refresh-token records.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is used when Janitor is built with a non-positive interval.
const DefaultInterval = 10 * time.Minute

// Store deletes refresh tokens that expired strictly before the cutoff.
type Store interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Metrics observes sweep outcomes. *observability.JanitorMetrics implements it.
type Metrics interface {
	ObserveSweep(purged int64, err error)
}

// Janitor sweeps Store on a fixed interval until its context is cancelled.
type Janitor struct {
	store    Store
	metrics  Metrics
	logger   zerolog.Logger
	interval time.Duration
	clock    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Janitor. metrics may be nil.
func New(store Store, interval time.Duration, metrics Metrics, logger zerolog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Janitor{
		store:    store,
		metrics:  metrics,
		logger:   logger.With().Str("component", "janitor").Logger(),
		interval: interval,
		clock:    time.Now,
	}
}

// RunOnce performs a single sweep and returns the number of records removed.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	purged, err := j.store.DeleteExpired(ctx, j.clock().UTC())
	if j.metrics != nil {
		j.metrics.ObserveSweep(purged, err)
	}
	if err != nil {
		j.logger.Error().Err(err).Msg("refresh token sweep failed")
		return 0, err
	}
	if purged > 0 {
		j.logger.Info().Int64("purged", purged).Msg("expired refresh tokens removed")
	} else {
		j.logger.Debug().Msg("no expired refresh tokens")
	}
	return purged, nil
}

// Run sweeps once immediately, then every interval, and returns when ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	_, _ = j.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}

// Start runs the janitor in a background goroutine. Call Stop to end it.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.Run(ctx)
	}()
}

// Stop cancels a started janitor and waits for the current sweep to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}
