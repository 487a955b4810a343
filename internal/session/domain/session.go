package domain

import "time"

// Session binds a principal to one login lineage across refresh-token rotations.
// A principal may hold many sessions (one per device). Sessions are deleted, not revoked.
type Session struct {
	ID           string
	PrincipalID  string
	CSRFToken    string
	LastActiveAt time.Time
	CreatedAt    time.Time
}
