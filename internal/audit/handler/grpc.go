package handler

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "ztcp-auth/api/audit/v1"
	"ztcp-auth/internal/audit/domain"
	"ztcp-auth/internal/server/interceptors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Lister reads a principal's audit events. *repository.PostgresRepository implements it.
type Lister interface {
	ListByPrincipal(ctx context.Context, principalID string, limit, offset int32) ([]*domain.AuditEvent, error)
}

// Server implements ztcp.audit.v1.AuditService. Callers only see their own events.
type Server struct {
	auditv1.UnimplementedAuditServiceServer
	repo Lister
}

// NewServer returns a new Audit gRPC server. If repo is nil, ListAuditEvents returns Unimplemented.
func NewServer(repo Lister) *Server {
	return &Server{repo: repo}
}

// ListAuditEvents returns a page of the caller's audit events, newest first.
// The page token is the offset of the next page.
func (s *Server) ListAuditEvents(ctx context.Context, req *auditv1.ListAuditEventsRequest) (*auditv1.ListAuditEventsResponse, error) {
	if s.repo == nil {
		return s.UnimplementedAuditServiceServer.ListAuditEvents(ctx, req)
	}
	principalID, ok := interceptors.GetPrincipalID(ctx)
	if !ok || principalID == "" {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	var offset int32
	if req.PageToken != "" {
		n, err := strconv.ParseInt(req.PageToken, 10, 32)
		if err != nil || n < 0 {
			return nil, status.Error(codes.InvalidArgument, "invalid page token")
		}
		offset = int32(n)
	}

	// One extra row tells us whether another page exists.
	events, err := s.repo.ListByPrincipal(ctx, principalID, pageSize+1, offset)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list audit events")
		return nil, status.Error(codes.Internal, "internal error")
	}
	resp := &auditv1.ListAuditEventsResponse{Events: make([]auditv1.AuditEvent, 0, len(events))}
	if int32(len(events)) > pageSize {
		events = events[:pageSize]
		resp.NextPageToken = strconv.FormatInt(int64(offset+pageSize), 10)
	}
	for _, e := range events {
		resp.Events = append(resp.Events, auditv1.AuditEvent{
			ID:        e.ID,
			SessionID: e.SessionID,
			Action:    e.Action,
			Resource:  e.Resource,
			IP:        e.IP,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp, nil
}
