package handler

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sessionv1 "ztcp-auth/api/session/v1"
	"ztcp-auth/internal/audit"
	"ztcp-auth/internal/server/interceptors"
	"ztcp-auth/internal/session/domain"
)

// SessionStore is the session persistence used by the handler. *repository.PostgresRepository implements it.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByPrincipal(ctx context.Context, principalID string) (int64, error)
}

// RefreshStore removes refresh records. Both refresh-token repositories implement it.
type RefreshStore interface {
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	DeleteByPrincipal(ctx context.Context, principalID string) (int64, error)
}

// Server implements SessionService: callers end their own sessions.
type Server struct {
	sessionv1.UnimplementedSessionServiceServer
	sessions      SessionStore
	refreshTokens RefreshStore
	auditLogger   audit.AuditLogger
}

// NewServer returns a new Session gRPC server. If sessions or refreshTokens is nil, all RPCs return Unimplemented.
func NewServer(sessions SessionStore, refreshTokens RefreshStore, auditLogger audit.AuditLogger) *Server {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &Server{sessions: sessions, refreshTokens: refreshTokens, auditLogger: auditLogger}
}

func (s *Server) ready() bool { return s.sessions != nil && s.refreshTokens != nil }

// RevokeSession ends one of the caller's sessions. Sessions of other principals look absent.
// Revoking an already-ended session succeeds.
func (s *Server) RevokeSession(ctx context.Context, req *sessionv1.RevokeSessionRequest) (*sessionv1.RevokeSessionResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.RevokeSession(ctx, req)
	}
	principalID, callerSession, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if req.SessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	ses, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, internal(ctx, err, "failed to get session")
	}
	if ses == nil {
		return &sessionv1.RevokeSessionResponse{}, nil
	}
	if ses.PrincipalID != principalID {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	if _, err := s.refreshTokens.DeleteBySession(ctx, ses.ID); err != nil {
		return nil, internal(ctx, err, "failed to revoke session")
	}
	if err := s.sessions.Delete(ctx, ses.ID); err != nil {
		return nil, internal(ctx, err, "failed to revoke session")
	}
	s.auditLogger.LogEvent(ctx, principalID, callerSession, audit.ActionSessionRevoked, "session="+ses.ID)
	return &sessionv1.RevokeSessionResponse{}, nil
}

// RevokeAllSessions ends every session of the caller, the current one included.
func (s *Server) RevokeAllSessions(ctx context.Context, req *sessionv1.RevokeAllSessionsRequest) (*sessionv1.RevokeAllSessionsResponse, error) {
	if !s.ready() {
		return s.UnimplementedSessionServiceServer.RevokeAllSessions(ctx, req)
	}
	principalID, callerSession, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.refreshTokens.DeleteByPrincipal(ctx, principalID); err != nil {
		return nil, internal(ctx, err, "failed to revoke sessions")
	}
	n, err := s.sessions.DeleteByPrincipal(ctx, principalID)
	if err != nil {
		return nil, internal(ctx, err, "failed to revoke sessions")
	}
	s.auditLogger.LogEvent(ctx, principalID, callerSession, audit.ActionSessionsRevokedAll, "count="+strconv.FormatInt(n, 10))
	return &sessionv1.RevokeAllSessionsResponse{Revoked: n}, nil
}

func caller(ctx context.Context) (principalID, sessionID string, err error) {
	principalID, ok := interceptors.GetPrincipalID(ctx)
	if !ok || principalID == "" {
		return "", "", status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	sessionID, _ = interceptors.GetSessionID(ctx)
	return principalID, sessionID, nil
}

func internal(ctx context.Context, err error, msg string) error {
	zerolog.Ctx(ctx).Error().Err(err).Msg(msg)
	return status.Error(codes.Internal, msg)
}
