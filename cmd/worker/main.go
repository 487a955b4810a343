// worker runs the refresh-token janitor against the configured refresh store.
// Set DATABASE_URL (and REDIS_URL when refresh tokens live in Redis). JANITOR_INTERVAL sets the period.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ztcp-auth/internal/config"
	"ztcp-auth/internal/db"
	"ztcp-auth/internal/janitor"
	"ztcp-auth/internal/logging"
	"ztcp-auth/internal/observability"
	refreshrepo "ztcp-auth/internal/refreshtoken/repository"
)

func main() {
	boot := logging.Bootstrap(os.Stderr)
	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		boot.Fatal().Err(err).Msg("logging")
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	obs := observability.NewServer(cfg.MetricsAddr, func() bool { return true }, logger)
	metrics := observability.NewJanitorMetrics(obs.Registry())
	if cfg.MetricsAddr != "" {
		if _, err := obs.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	logger.Info().Dur("interval", cfg.JanitorEvery()).Msg("worker: janitor started")
	janitor.New(store, cfg.JanitorEvery(), metrics, logger).Run(ctx)
	logger.Info().Msg("worker: stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (janitor.Store, func(), error) {
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(opts)
		return refreshrepo.NewRedisRepository(rdb, refreshrepo.DefaultRedisPrefix), func() { _ = rdb.Close() }, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("worker: DATABASE_URL or REDIS_URL is required")
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return refreshrepo.NewPostgresRepository(pool), pool.Close, nil
}
