package domain

import "time"

// RefreshToken is the stored form of an opaque refresh secret. Only TokenHash is kept;
// the secret itself is returned to the client once and never persisted.
type RefreshToken struct {
	ID          string
	PrincipalID string
	SessionID   string
	TokenHash   string
	ExpiresAt   time.Time
	UserAgent   *string
	CreatedAt   time.Time
}

// IsExpired reports whether the record expired strictly before now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
