package server

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	auditv1 "ztcp-auth/api/audit/v1"
	authv1 "ztcp-auth/api/auth/v1"
	sessionv1 "ztcp-auth/api/session/v1"
	"ztcp-auth/internal/audit"
	audithandler "ztcp-auth/internal/audit/handler"
	healthhandler "ztcp-auth/internal/health/handler"
	identityhandler "ztcp-auth/internal/identity/handler"
	"ztcp-auth/internal/server/interceptors"
	sessionhandler "ztcp-auth/internal/session/handler"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
)

// PublicMethods are served without a bearer token.
var PublicMethods = map[string]bool{
	authv1.AuthService_Login_FullMethodName:   true,
	authv1.AuthService_Refresh_FullMethodName: true,
	authv1.AuthService_Logout_FullMethodName:  true,
	healthCheckMethod:                         true,
}

// quietMethods are neither logged per call nor audited.
var quietMethods = map[string]bool{
	healthCheckMethod: true,
}

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth backs AuthService. If nil, auth RPCs return Unimplemented.
	Auth identityhandler.AuthService
	// AuditLister backs AuditService. If nil, ListAuditEvents returns Unimplemented.
	AuditLister audithandler.Lister
	// Sessions and RefreshTokens back SessionService. If either is nil, its RPCs return Unimplemented.
	Sessions      sessionhandler.SessionStore
	RefreshTokens sessionhandler.RefreshStore
	// AuditLogger records session revocations. May be nil.
	AuditLogger audit.AuditLogger
	// Health is the readiness check for grpc.health.v1. If nil, health always reports SERVING.
	Health healthhandler.Checker
}

// Options configures the interceptor chain of the gRPC server.
type Options struct {
	Logger zerolog.Logger
	// Tokens verifies bearer tokens on non-public methods.
	Tokens interceptors.TokenDecoder
	// ValidateSession, when set, rejects bearer tokens whose session has ended.
	ValidateSession interceptors.SessionValidator
	// Audit records authenticated RPCs. May be nil.
	Audit interceptors.Recorder
}

// NewGRPCServer returns a gRPC server instrumented with OpenTelemetry and the
// logging, bearer auth and audit interceptors, in that order.
func NewGRPCServer(opts Options, extra ...grpc.ServerOption) *grpc.Server {
	serverOpts := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggingUnary(opts.Logger, quietMethods),
			interceptors.AuthUnary(opts.Tokens, PublicMethods, opts.ValidateSession),
			interceptors.AuditUnary(opts.Audit, quietMethods),
		),
	}
	return grpc.NewServer(append(serverOpts, extra...)...)
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - ztcp.auth.v1.AuthService   → internal/identity/handler
//   - ztcp.session.v1.SessionService → internal/session/handler
//   - ztcp.audit.v1.AuditService → internal/audit/handler
//   - grpc.health.v1.Health      → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	sessionv1.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.Sessions, deps.RefreshTokens, deps.AuditLogger))
	auditv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditLister))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.Health, authv1.ServiceName, sessionv1.ServiceName, auditv1.ServiceName))
}
