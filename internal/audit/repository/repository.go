package repository

import (
	"context"

	"ztcp-auth/internal/audit/domain"
)

// Repository defines persistence for audit events.
type Repository interface {
	Save(ctx context.Context, e *domain.AuditEvent) error
	ListByPrincipal(ctx context.Context, principalID string, limit, offset int32) ([]*domain.AuditEvent, error)
}
