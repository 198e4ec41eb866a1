package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// AuditRecorder appends attributed audit events. Anonymous callers are a
// silent no-op, and recorder failures never break the triggering operation.
type AuditRecorder struct {
	events outbound.AuditRepository
	log    logger.Logger
}

func NewAuditRecorder(events outbound.AuditRepository, log logger.Logger) *AuditRecorder {
	return &AuditRecorder{events: events, log: log}
}

var _ inbound.AuditRecorder = (*AuditRecorder)(nil)

func (r *AuditRecorder) Record(ctx context.Context, input inbound.AuditEventInput) {
	if input.UserID == "" {
		return
	}

	event := &entity.AuditEvent{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		AgentID:   input.AgentID,
		Action:    input.Action,
		Payload:   input.Payload,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.events.Create(ctx, event); err != nil {
		r.log.Warn(ctx, "audit event not recorded", map[string]interface{}{
			"user_id": input.UserID,
			"action":  input.Action,
			"reason":  err.Error(),
		})
	}
}
