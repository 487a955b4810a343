package handler

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Checker is the readiness check consulted on every health request. *health.Checker implements it.
type Checker interface {
	Check(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness probes from Kubernetes and load balancers.
// The overall status ("") and every name in services report the same dependency check.
type Server struct {
	healthpb.UnimplementedHealthServer
	checker  Checker
	services map[string]bool
}

// NewServer returns a Health server. checker may be nil; then the server always reports SERVING.
func NewServer(checker Checker, services ...string) *Server {
	known := map[string]bool{"": true}
	for _, s := range services {
		known[s] = true
	}
	return &Server{checker: checker, services: known}
}

// Check reports SERVING when every dependency answers and NOT_SERVING otherwise.
// A failing dependency is not a gRPC error; unknown services are NotFound per the health protocol.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if !s.services[req.GetService()] {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	if s.checker != nil {
		if err := s.checker.Check(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("health check failed")
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
