package domain

import (
	"time"

	"ztcp-auth/internal/lockout"
)

// Principal is an account that can authenticate. The credential hash is deliberately not a
// field: it is loaded by id only, through the repository.
type Principal struct {
	ID               string
	Name             string
	FullName         string
	Active           bool
	Blocked          bool
	BlockedSince     *time.Time
	FailedLoginCount int
	LastLoginAt      *time.Time
	IsServiceAccount bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Role is a named role assigned to a principal. Roles are passed through, never evaluated.
type Role struct {
	ID   string
	Name string
}

// LockoutState returns the lockout-relevant fields of p.
func (p *Principal) LockoutState() lockout.State {
	return lockout.State{
		FailedLoginCount: p.FailedLoginCount,
		Blocked:          p.Blocked,
		BlockedSince:     p.BlockedSince,
	}
}

// ApplyLockoutState copies s onto p.
func (p *Principal) ApplyLockoutState(s lockout.State) {
	p.FailedLoginCount = s.FailedLoginCount
	p.Blocked = s.Blocked
	p.BlockedSince = s.BlockedSince
}

// RoleNames returns the names of roles in order.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Name
	}
	return out
}
