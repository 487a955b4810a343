// server runs the auth service: gRPC and HTTP transports plus the metrics/health endpoint.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ztcp-auth/internal/audit"
	auditrepo "ztcp-auth/internal/audit/repository"
	"ztcp-auth/internal/config"
	"ztcp-auth/internal/db"
	"ztcp-auth/internal/health"
	identityhandler "ztcp-auth/internal/identity/handler"
	"ztcp-auth/internal/identity/service"
	"ztcp-auth/internal/logging"
	"ztcp-auth/internal/observability"
	principalrepo "ztcp-auth/internal/principal/repository"
	refreshrepo "ztcp-auth/internal/refreshtoken/repository"
	"ztcp-auth/internal/security"
	"ztcp-auth/internal/server"
	"ztcp-auth/internal/server/interceptors"
	sessionrepo "ztcp-auth/internal/session/repository"
	"ztcp-auth/internal/telemetry"
	otelsetup "ztcp-auth/internal/telemetry/otel"
	"ztcp-auth/internal/telemetry/producer"
)

const (
	serviceName     = "ztcp-auth"
	shutdownTimeout = 15 * time.Second
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
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	tokens, err := cfg.TokenProvider()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer shutdownWith(logger, "otel", providers.Shutdown)

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	checker := health.NewChecker(health.DefaultTimeout)
	checker.Add("postgres", pool)

	refreshTokens, closeRefresh, err := openRefreshStore(ctx, cfg, pool, checker)
	if err != nil {
		return err
	}
	defer closeRefresh()

	emitters := []telemetry.EventEmitter{otelsetup.NewEventEmitter(providers.LoggerProvider)}
	if brokers := cfg.KafkaBrokersList(); len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.AuthEventsTopic)
		if err != nil {
			return err
		}
		defer func() { _ = kp.Close() }()
		emitters = append(emitters, kp)
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.AuthEventsTopic).Msg("auth events published to kafka")
	}
	audits := auditrepo.NewPostgresRepository(pool)
	auditLogger := audit.NewLogger(audits, interceptors.ClientIP, emitters...)

	obs := observability.NewServer(cfg.MetricsAddr, checker.Ready, logger)
	authMetrics := observability.NewAuthMetrics(obs.Registry())

	principals := principalrepo.NewPostgresRepository(pool)
	sessions := sessionrepo.NewPostgresRepository(pool)
	authSvc := service.NewAuthService(
		principals,
		sessions,
		refreshTokens,
		security.NewHasher(cfg.BcryptCost),
		tokens,
		service.Config{LockoutThreshold: cfg.LockoutThreshold, RefreshTTL: cfg.RefreshTTL()},
		auditLogger,
		authMetrics,
	)

	grpcServer := server.NewGRPCServer(server.Options{
		Logger: logger,
		Tokens: tokens,
		ValidateSession: func(ctx context.Context, sessionID string) (bool, error) {
			s, err := sessions.GetByID(ctx, sessionID)
			return s != nil, err
		},
		Audit: auditLogger,
	})
	server.RegisterServices(grpcServer, server.Deps{
		Auth:          authSvc,
		Sessions:      sessions,
		RefreshTokens: refreshTokens,
		AuditLogger:   auditLogger,
		AuditLister:   audits,
		Health:        checker,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	errs := make(chan error, 3)
	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		errs <- grpcServer.Serve(lis)
	}()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           identityhandler.NewHTTPHandler(authSvc, logger, cfg.CORSOrigins()),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			MaxHeaderBytes:    8 * 1024,
		}
		go func() {
			logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}

	if cfg.MetricsAddr != "" {
		obsErrs, err := obs.Start()
		if err != nil {
			return err
		}
		go func() {
			if err, ok := <-obsErrs; ok && err != nil {
				errs <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errs:
		logger.Error().Err(err).Msg("server failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}
	stopGRPC(shutdownCtx, grpcServer.GracefulStop, grpcServer.Stop)
	if cfg.MetricsAddr != "" {
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("observability shutdown")
		}
	}
	logger.Info().Msg("stopped")
	return nil
}

// openRefreshStore returns the Redis store when REDIS_URL is set and the Postgres store otherwise.
func openRefreshStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, checker *health.Checker) (refreshrepo.Repository, func(), error) {
	if cfg.RedisURL == "" {
		return refreshrepo.NewPostgresRepository(pool), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	checker.Add("redis", health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }))
	zerolog.Ctx(ctx).Info().Msg("refresh tokens stored in redis")
	return refreshrepo.NewRedisRepository(rdb, refreshrepo.DefaultRedisPrefix), func() { _ = rdb.Close() }, nil
}

// stopGRPC waits for in-flight RPCs until ctx expires, then forces the stop.
func stopGRPC(ctx context.Context, graceful, force func()) {
	done := make(chan struct{})
	go func() {
		graceful()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		force()
	}
}

func shutdownWith(logger zerolog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn().Err(err).Str("component", name).Msg("shutdown")
	}
}
