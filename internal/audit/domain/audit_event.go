package domain

import "time"

// AuditEvent is one security-relevant event: an auth outcome or an authenticated RPC.
type AuditEvent struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id,omitempty"`
	SessionID   string    `json:"session_id,omitempty"`
	Action      string    `json:"action"`
	Resource    string    `json:"resource"`
	IP          string    `json:"ip"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
