package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"ztcp-auth/internal/db"
	"ztcp-auth/internal/lockout"
	"ztcp-auth/internal/principal/domain"
)

const principalColumns = `id, name, full_name, active, blocked, blocked_since, failed_login_count,
	last_login_at, is_service_account, created_at, updated_at`

// PostgresRepository implements Repository on a pgx pool.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a principal repository that uses the given pool for persistence.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the principal for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_QUERY_FAILED").With("principal_id", id).Wrap(err)
	}
	return p, nil
}

// GetByName returns the principal with the given unique name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE name = $1`, name)
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_QUERY_FAILED").With("name", name).Wrap(err)
	}
	return p, nil
}

// GetPasswordHash returns the credential hash for id. Missing principal and NULL hash both yield "".
func (r *PostgresRepository) GetPasswordHash(ctx context.Context, id string) (string, error) {
	var hash *string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM principals WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("PRINCIPAL_QUERY_FAILED").With("principal_id", id).Wrap(err)
	}
	if hash == nil {
		return "", nil
	}
	return *hash, nil
}

// ListRoles returns the roles assigned to principalID ordered by name.
func (r *PostgresRepository) ListRoles(ctx context.Context, principalID string) ([]domain.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.id, r.name FROM roles r
		JOIN principal_roles pr ON pr.role_id = r.id
		WHERE pr.principal_id = $1 ORDER BY r.name`, principalID)
	if err != nil {
		return nil, oops.Code("ROLE_QUERY_FAILED").With("principal_id", principalID).Wrap(err)
	}
	defer rows.Close()

	var out []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, oops.Code("ROLE_SCAN_FAILED").With("principal_id", principalID).Wrap(err)
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_QUERY_FAILED").With("principal_id", principalID).Wrap(err)
	}
	return out, nil
}

// RecordLoginFailure locks the principal row, applies next to its lockout state and writes it back.
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, id string, next func(lockout.State) lockout.State) (lockout.State, lockout.State, error) {
	var prev, updated lockout.State
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT failed_login_count, blocked, blocked_since
			FROM principals WHERE id = $1 FOR UPDATE`, id).
			Scan(&prev.FailedLoginCount, &prev.Blocked, &prev.BlockedSince)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return oops.Code("PRINCIPAL_LOCK_FAILED").With("principal_id", id).Wrap(err)
		}
		updated = next(prev)
		_, err = tx.Exec(ctx, `UPDATE principals
			SET failed_login_count = $2, blocked = $3, blocked_since = $4, updated_at = now()
			WHERE id = $1`, id, updated.FailedLoginCount, updated.Blocked, updated.BlockedSince)
		if err != nil {
			return oops.Code("PRINCIPAL_UPDATE_FAILED").With("principal_id", id).Wrap(err)
		}
		return nil
	})
	if err != nil {
		return lockout.State{}, lockout.State{}, err
	}
	return prev, updated, nil
}

// RecordLoginSuccess resets failed_login_count and sets last_login_at on an active, unblocked row.
// It reports false when no such row exists, e.g. the principal was blocked after its password was checked.
func (r *PostgresRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE principals
		SET failed_login_count = 0, last_login_at = $2, updated_at = $2
		WHERE id = $1 AND active = true AND blocked = false`, id, at)
	if err != nil {
		return false, oops.Code("PRINCIPAL_UPDATE_FAILED").With("principal_id", id).Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

// Create inserts p. An empty ID is replaced with a new UUID; an empty passwordHash stores NULL.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Principal, passwordHash string) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	_, err := r.pool.Exec(ctx, `INSERT INTO principals
		(id, name, full_name, password_hash, active, blocked, blocked_since, failed_login_count,
		 last_login_at, is_service_account, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, p.FullName, nullableString(passwordHash), p.Active, p.Blocked, p.BlockedSince,
		p.FailedLoginCount, p.LastLoginAt, p.IsServiceAccount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateName
		}
		return oops.Code("PRINCIPAL_CREATE_FAILED").With("name", p.Name).Wrap(err)
	}
	return nil
}

// SetPasswordHash replaces the stored credential hash for id.
func (r *PostgresRepository) SetPasswordHash(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE principals SET password_hash = $2, updated_at = now() WHERE id = $1`,
		id, nullableString(passwordHash))
	if err != nil {
		return oops.Code("PRINCIPAL_UPDATE_FAILED").With("principal_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBlocked sets or clears the blocked flag. Clearing also resets the failure counter.
func (r *PostgresRepository) SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error {
	var since *time.Time
	if blocked {
		since = &at
	}
	tag, err := r.pool.Exec(ctx, `UPDATE principals
		SET blocked = $2, blocked_since = $3,
		    failed_login_count = CASE WHEN $2 THEN failed_login_count ELSE 0 END,
		    updated_at = now()
		WHERE id = $1`, id, blocked, since)
	if err != nil {
		return oops.Code("PRINCIPAL_UPDATE_FAILED").With("principal_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureRole inserts the role if it does not exist and returns it.
func (r *PostgresRepository) EnsureRole(ctx context.Context, name string) (*domain.Role, error) {
	role := domain.Role{}
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`, uuid.New().String(), name).Scan(&role.ID, &role.Name)
	if err != nil {
		return nil, oops.Code("ROLE_UPSERT_FAILED").With("role", name).Wrap(err)
	}
	return &role, nil
}

// AssignRole grants roleID to principalID. Assigning an existing grant is a no-op.
func (r *PostgresRepository) AssignRole(ctx context.Context, principalID, roleID string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO principal_roles (principal_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, principalID, roleID)
	if err != nil {
		return oops.Code("ROLE_ASSIGN_FAILED").With("principal_id", principalID).With("role_id", roleID).Wrap(err)
	}
	return nil
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var p domain.Principal
	err := row.Scan(&p.ID, &p.Name, &p.FullName, &p.Active, &p.Blocked, &p.BlockedSince,
		&p.FailedLoginCount, &p.LastLoginAt, &p.IsServiceAccount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
