package interceptors

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"ztcp-auth/internal/security"
)

const bearerPrefix = "bearer "

// TokenDecoder verifies a bearer token. *security.TokenProvider implements it.
type TokenDecoder interface {
	Decode(token string) (*security.Claims, error)
}

// SessionValidator reports whether the session named in a bearer token still exists.
type SessionValidator func(ctx context.Context, sessionID string) (bool, error)

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and sets principal_id, session_id and roles in context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (AuthService Login, Refresh, Logout; the health service).
// validateSession may be nil; when set, tokens for ended sessions are rejected.
func AuthUnary(tokens TokenDecoder, publicMethods map[string]bool, validateSession SessionValidator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		token := extractBearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		claims, err := tokens.Decode(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		if validateSession != nil {
			ok, err := validateSession(ctx, claims.SessionID)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", claims.SessionID).Msg("session validation failed")
				return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
			}
			if !ok {
				return nil, status.Error(codes.Unauthenticated, "session ended")
			}
		}

		ctx = WithIdentity(ctx, claims.PrincipalID, claims.SessionID, claims.RoleNames)
		logger := zerolog.Ctx(ctx).With().Str("principal_id", claims.PrincipalID).Str("session_id", claims.SessionID).Logger()
		return handler(logger.WithContext(ctx), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
