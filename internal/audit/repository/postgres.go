package repository

import (
	"context"

	"github.com/samber/oops"

	"ztcp-auth/internal/audit/domain"
	"ztcp-auth/internal/db"
)

type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns an audit event repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save persists the event. The event must have ID set.
func (r *PostgresRepository) Save(ctx context.Context, e *domain.AuditEvent) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO audit_events
		(id, principal_id, session_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, nullable(e.PrincipalID), nullable(e.SessionID), e.Action, e.Resource, e.IP,
		nullable(e.Metadata), e.CreatedAt)
	if err != nil {
		return oops.Code("AUDIT_SAVE_FAILED").With("action", e.Action).Wrap(err)
	}
	return nil
}

// ListByPrincipal returns events for principalID, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListByPrincipal(ctx context.Context, principalID string, limit, offset int32) ([]*domain.AuditEvent, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, principal_id, session_id, action, resource, ip, metadata, created_at
		FROM audit_events WHERE principal_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, principalID, limit, offset)
	if err != nil {
		return nil, oops.Code("AUDIT_QUERY_FAILED").With("principal_id", principalID).Wrap(err)
	}
	defer rows.Close()

	var out []*domain.AuditEvent
	for rows.Next() {
		var (
			e                  domain.AuditEvent
			pid, sid, metadata *string
		)
		if err := rows.Scan(&e.ID, &pid, &sid, &e.Action, &e.Resource, &e.IP, &metadata, &e.CreatedAt); err != nil {
			return nil, oops.Code("AUDIT_SCAN_FAILED").With("principal_id", principalID).Wrap(err)
		}
		e.PrincipalID, e.SessionID, e.Metadata = deref(pid), deref(sid), deref(metadata)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUDIT_QUERY_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
