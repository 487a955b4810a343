package repository

import (
	"context"
	"errors"
	"time"

	"ztcp-auth/internal/lockout"
	"ztcp-auth/internal/principal/domain"
)

// ErrNotFound is returned by mutating operations when the principal does not exist.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("principal not found")

// ErrDuplicateName is returned by Create when the name is already taken.
var ErrDuplicateName = errors.New("principal name already exists")

// Repository defines persistence for principals and their roles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByName(ctx context.Context, name string) (*domain.Principal, error)
	// GetPasswordHash returns the stored credential hash, or "" when the principal has none.
	GetPasswordHash(ctx context.Context, id string) (string, error)
	ListRoles(ctx context.Context, principalID string) ([]domain.Role, error)
	// RecordLoginFailure reads the lockout state under a row lock, applies next, and persists
	// the result in one transaction. It returns the state before and after.
	RecordLoginFailure(ctx context.Context, id string, next func(lockout.State) lockout.State) (lockout.State, lockout.State, error)
	// RecordLoginSuccess resets the failure counter and stamps last_login_at. It reports false,
	// without writing, when the principal is missing, blocked or inactive.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) (bool, error)
	Create(ctx context.Context, p *domain.Principal, passwordHash string) error
	SetPasswordHash(ctx context.Context, id, passwordHash string) error
	SetBlocked(ctx context.Context, id string, blocked bool, at time.Time) error
	// EnsureRole returns the role named name, creating it if needed.
	EnsureRole(ctx context.Context, name string) (*domain.Role, error)
	AssignRole(ctx context.Context, principalID, roleID string) error
}
