package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	authv1 "ztcp-auth/api/auth/v1"
	"ztcp-auth/internal/identity/service"
	"ztcp-auth/internal/server/interceptors"
	sessiondomain "ztcp-auth/internal/session/domain"
)

// AuthService is the use-case surface the transports call. *service.AuthService implements it.
type AuthService interface {
	Login(ctx context.Context, name, password, userAgent string) (*service.LoginResult, error)
	Refresh(ctx context.Context, refreshToken, userAgent string) (*service.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ListSessions(ctx context.Context, principalID string) ([]*sessiondomain.Session, error)
}

// AuthServer implements ztcp.auth.v1.AuthService over gRPC.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth AuthService
}

// NewAuthServer returns a new Auth gRPC server. If auth is nil, every RPC returns Unimplemented.
func NewAuthServer(auth AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// Login authenticates name and password and returns a new session's credentials.
func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.Login(ctx, req)
	}
	res, err := s.auth.Login(ctx, req.Name, req.Password, userAgentFromMetadata(ctx))
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return loginResponse(res), nil
}

// Refresh rotates the refresh token and returns new credentials for the same session.
func (s *AuthServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.RefreshResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.Refresh(ctx, req)
	}
	res, err := s.auth.Refresh(ctx, req.RefreshToken, userAgentFromMetadata(ctx))
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	return &authv1.RefreshResponse{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, ExpiresAt: res.ExpiresAt}, nil
}

// Logout ends the session the refresh token belongs to.
func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.Logout(ctx, req)
	}
	if err := s.auth.Logout(ctx, req.RefreshToken); err != nil {
		return nil, grpcError(ctx, err)
	}
	return &authv1.LogoutResponse{}, nil
}

// ListSessions returns the caller's sessions. Requires a bearer token.
func (s *AuthServer) ListSessions(ctx context.Context, req *authv1.ListSessionsRequest) (*authv1.ListSessionsResponse, error) {
	if s.auth == nil {
		return s.UnimplementedAuthServiceServer.ListSessions(ctx, req)
	}
	principalID, ok := interceptors.GetPrincipalID(ctx)
	if !ok || principalID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	currentID, _ := interceptors.GetSessionID(ctx)
	sessions, err := s.auth.ListSessions(ctx, principalID)
	if err != nil {
		return nil, grpcError(ctx, err)
	}
	out := &authv1.ListSessionsResponse{Sessions: make([]authv1.Session, 0, len(sessions))}
	for _, sess := range sessions {
		out.Sessions = append(out.Sessions, authv1.Session{
			ID:           sess.ID,
			Current:      sess.ID == currentID,
			LastActiveAt: sess.LastActiveAt,
			CreatedAt:    sess.CreatedAt,
		})
	}
	return out, nil
}

func loginResponse(res *service.LoginResult) *authv1.LoginResponse {
	roles := make([]authv1.Role, len(res.User.Roles))
	for i, r := range res.User.Roles {
		roles[i] = authv1.Role{ID: r.ID, Name: r.Name}
	}
	return &authv1.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		CSRFToken:    res.CSRFToken,
		ExpiresAt:    res.ExpiresAt,
		User: authv1.User{
			ID:       res.User.ID,
			Name:     res.User.Name,
			FullName: res.User.FullName,
			Roles:    roles,
		},
	}
}

// grpcError maps service errors to gRPC status. Unknown errors are logged and reported as Internal.
func grpcError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return status.Error(codes.InvalidArgument, "invalid request")
	case errors.Is(err, service.ErrAccountLocked):
		return status.Error(codes.Unauthenticated, "account locked")
	case errors.Is(err, service.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("auth rpc failed")
		return status.Error(codes.Internal, "internal error")
	}
}

// userAgentFromMetadata returns the client's user-agent header, or "".
func userAgentFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if vals := md.Get("user-agent"); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}
