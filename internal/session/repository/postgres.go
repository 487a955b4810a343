package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"ztcp-auth/internal/db"
	"ztcp-auth/internal/session/domain"
)

type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a session repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, principal_id, csrf_token, last_active_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`, s.ID, s.PrincipalID, s.CSRFToken, s.LastActiveAt, s.CreatedAt)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("session_id", s.ID).Wrap(err)
	}
	return nil
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.pool.QueryRow(ctx, `SELECT id, principal_id, csrf_token, last_active_at, created_at
		FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.PrincipalID, &s.CSRFToken, &s.LastActiveAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").With("session_id", id).Wrap(err)
	}
	return &s, nil
}

// ListByPrincipal returns all sessions for principalID, most recently active first.
func (r *PostgresRepository) ListByPrincipal(ctx context.Context, principalID string) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, principal_id, csrf_token, last_active_at, created_at
		FROM sessions WHERE principal_id = $1 ORDER BY last_active_at DESC`, principalID)
	if err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").With("principal_id", principalID).Wrap(err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.PrincipalID, &s.CSRFToken, &s.LastActiveAt, &s.CreatedAt); err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").With("principal_id", principalID).Wrap(err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_QUERY_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return out, nil
}

// Touch updates last_active_at for id.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET last_active_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return false, oops.Code("SESSION_UPDATE_FAILED").With("session_id", id).Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the session with the given id. Refresh tokens cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("session_id", id).Wrap(err)
	}
	return nil
}

// DeleteByPrincipal removes every session of principalID and returns how many were removed.
func (r *PostgresRepository) DeleteByPrincipal(ctx context.Context, principalID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE principal_id = $1`, principalID)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}
