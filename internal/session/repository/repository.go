package repository

import (
	"context"
	"time"

	"ztcp-auth/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	ListByPrincipal(ctx context.Context, principalID string) ([]*domain.Session, error)
	// Touch sets last_active_at. It reports false when the session no longer exists.
	Touch(ctx context.Context, id string, at time.Time) (bool, error)
	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
	DeleteByPrincipal(ctx context.Context, principalID string) (int64, error)
}
