package repository

import (
	"context"
	"time"

	"ztcp-auth/internal/refreshtoken/domain"
)

// Repository defines persistence for refresh token records, addressed by the hash of the secret.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	// GetByHash returns the record with tokenHash, or nil if not found.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// DeleteByHash atomically removes the record and reports whether this call removed it.
	// Of several concurrent callers for the same hash, at most one sees true.
	DeleteByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	DeleteByPrincipal(ctx context.Context, principalID string) (int64, error)
	// DeleteExpired removes records whose expiry is strictly before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
