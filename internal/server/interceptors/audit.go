package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"ztcp-auth/internal/audit"
	"ztcp-auth/internal/audit/domain"
)

// Recorder writes audit events. *audit.Logger implements it.
type Recorder interface {
	Record(ctx context.Context, e *domain.AuditEvent)
}

// AuditUnary returns a unary server interceptor that records an audit event after each
// authenticated RPC. skipMethods is the set of full method names to not audit.
// Unauthenticated calls are skipped; the auth service records its own events.
func AuditUnary(recorder Recorder, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if recorder == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		principalID, _ := GetPrincipalID(ctx)
		if principalID == "" {
			return resp, err
		}
		sessionID, _ := GetSessionID(ctx)
		ar := audit.ParseFullMethod(info.FullMethod)
		recorder.Record(ctx, &domain.AuditEvent{
			PrincipalID: principalID,
			SessionID:   sessionID,
			Action:      ar.Action,
			Resource:    ar.Resource,
			IP:          ClientIP(ctx),
			Metadata:    "status=" + status.Code(err).String(),
		})
		return resp, err
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
