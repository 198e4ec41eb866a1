package outbound

import (
	"context"

	"github.com/agentity/agentity/domain/entity"
)

// AuditRepository appends user-attributed audit events. Events are never
// updated or deleted.
type AuditRepository interface {
	Create(ctx context.Context, event *entity.AuditEvent) error
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*entity.AuditEvent, error)

	// CountByUser counts a user's events, optionally filtered by action
	// name (empty action counts everything).
	CountByUser(ctx context.Context, userID string, action string) (int, error)

	// DistinctAgentIDsByUser returns the last agents the user touched.
	DistinctAgentIDsByUser(ctx context.Context, userID string, limit int) ([]string, error)
}
