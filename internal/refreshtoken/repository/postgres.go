package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"ztcp-auth/internal/db"
	"ztcp-auth/internal/refreshtoken/domain"
)

// PostgresRepository stores refresh tokens in the refresh_tokens table. Rows cascade with their session.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a refresh token repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO refresh_tokens
		(id, principal_id, session_id, token_hash, expires_at, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.PrincipalID, t.SessionID, t.TokenHash, t.ExpiresAt, t.UserAgent, t.CreatedAt)
	if err != nil {
		return oops.Code("REFRESH_TOKEN_CREATE_FAILED").With("session_id", t.SessionID).Wrap(err)
	}
	return nil
}

func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.pool.QueryRow(ctx, `SELECT id, principal_id, session_id, token_hash, expires_at, user_agent, created_at
		FROM refresh_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.ID, &t.PrincipalID, &t.SessionID, &t.TokenHash, &t.ExpiresAt, &t.UserAgent, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("REFRESH_TOKEN_QUERY_FAILED").Wrap(err)
	}
	return &t, nil
}

// DeleteByHash relies on the DELETE row count: under concurrent deletes only one statement affects the row.
func (r *PostgresRepository) DeleteByHash(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return false, oops.Code("REFRESH_TOKEN_DELETE_FAILED").Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_DELETE_FAILED").With("session_id", sessionID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteByPrincipal(ctx context.Context, principalID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE principal_id = $1`, principalID)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_DELETE_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, oops.Code("REFRESH_TOKEN_PURGE_FAILED").With("before", before).Wrap(err)
	}
	return tag.RowsAffected(), nil
}
