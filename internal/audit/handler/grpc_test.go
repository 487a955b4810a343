package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "ztcp-auth/api/audit/v1"
	"ztcp-auth/internal/audit/domain"
	"ztcp-auth/internal/server/interceptors"
)

type memLister struct {
	events      []*domain.AuditEvent
	err         error
	principalID string
	limit       int32
	offset      int32
}

func (m *memLister) ListByPrincipal(ctx context.Context, principalID string, limit, offset int32) ([]*domain.AuditEvent, error) {
	m.principalID, m.limit, m.offset = principalID, limit, offset
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.AuditEvent
	for i := int(offset); i < len(m.events) && len(out) < int(limit); i++ {
		out = append(out, m.events[i])
	}
	return out, nil
}

func events(n int) []*domain.AuditEvent {
	out := make([]*domain.AuditEvent, n)
	for i := range out {
		out[i] = &domain.AuditEvent{
			ID:          fmt.Sprintf("e-%d", i),
			PrincipalID: "principal-1",
			Action:      "login_success",
			Resource:    "auth",
			IP:          "10.0.0.1",
			CreatedAt:   time.Now().UTC(),
		}
	}
	return out
}

func authed() context.Context {
	return interceptors.WithIdentity(context.Background(), "principal-1", "session-1", nil)
}

func TestListAuditEvents_NilRepo(t *testing.T) {
	_, err := NewServer(nil).ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestListAuditEvents_Unauthenticated(t *testing.T) {
	_, err := NewServer(&memLister{}).ListAuditEvents(context.Background(), &auditv1.ListAuditEventsRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestListAuditEvents_Pagination(t *testing.T) {
	repo := &memLister{events: events(5)}
	srv := NewServer(repo)

	resp, err := srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, "principal-1", repo.principalID)
	assert.Equal(t, int32(3), repo.limit)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "e-0", resp.Events[0].ID)
	assert.Equal(t, "2", resp.NextPageToken)

	resp, err = srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{PageSize: 2, PageToken: resp.NextPageToken})
	require.NoError(t, err)
	assert.Equal(t, "e-2", resp.Events[0].ID)
	assert.Equal(t, "4", resp.NextPageToken)

	resp, err = srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{PageSize: 2, PageToken: resp.NextPageToken})
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Empty(t, resp.NextPageToken)
}

func TestListAuditEvents_PageSizeBounds(t *testing.T) {
	repo := &memLister{}
	srv := NewServer(repo)

	_, err := srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{})
	require.NoError(t, err)
	assert.Equal(t, int32(defaultPageSize+1), repo.limit)

	_, err = srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{PageSize: 10000})
	require.NoError(t, err)
	assert.Equal(t, int32(maxPageSize+1), repo.limit)
}

func TestListAuditEvents_InvalidPageToken(t *testing.T) {
	srv := NewServer(&memLister{})
	for _, tok := range []string{"abc", "-1"} {
		_, err := srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{PageToken: tok})
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "token %q", tok)
	}
}

func TestListAuditEvents_RepoError(t *testing.T) {
	srv := NewServer(&memLister{err: errors.New("db down")})
	_, err := srv.ListAuditEvents(authed(), &auditv1.ListAuditEventsRequest{})
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal error", st.Message())
}
