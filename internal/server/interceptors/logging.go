package interceptors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingUnary returns a unary server interceptor that attaches a request-scoped logger to the
// context and logs each RPC with its status and duration. skipMethods are served without logging.
func LoggingUnary(logger zerolog.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		started := time.Now()
		reqLogger := logger.With().
			Str("request_id", uuid.New().String()).
			Str("method", info.FullMethod).
			Str("client_ip", ClientIP(ctx)).
			Logger()
		ctx = reqLogger.WithContext(ctx)

		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}

		code := status.Code(err)
		ev := reqLogger.Info()
		if code == codes.Internal || code == codes.Unknown || code == codes.Unavailable {
			ev = reqLogger.Error()
		}
		ev.Str("code", code.String()).Dur("duration", time.Since(started)).Msg("rpc call")
		return resp, err
	}
}
