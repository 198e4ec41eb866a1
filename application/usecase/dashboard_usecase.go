package usecase

import (
	"context"
	"errors"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
	apperr "github.com/agentity/agentity/domain/error"
)

const (
	overviewRecentLimit = 15
	overviewAgentLimit  = 5
)

// DashboardUseCase aggregates a user's recent activity from the audit log.
type DashboardUseCase struct {
	events outbound.AuditRepository
	agents outbound.AgentRepository
}

func NewDashboardUseCase(events outbound.AuditRepository, agents outbound.AgentRepository) *DashboardUseCase {
	return &DashboardUseCase{events: events, agents: agents}
}

var _ inbound.DashboardUseCase = (*DashboardUseCase)(nil)

func (uc *DashboardUseCase) Overview(ctx context.Context, userID string) (*inbound.DashboardOverview, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized("dashboard requires an authenticated user")
	}

	total, err := uc.events.CountByUser(ctx, userID, "")
	if err != nil {
		return nil, apperr.ErrDatabaseError("count audit events", err)
	}
	simulations, err := uc.events.CountByUser(ctx, userID, entity.AuditActionSimulate)
	if err != nil {
		return nil, apperr.ErrDatabaseError("count simulations", err)
	}
	executions, err := uc.events.CountByUser(ctx, userID, entity.AuditActionExecute)
	if err != nil {
		return nil, apperr.ErrDatabaseError("count executions", err)
	}
	verifications, err := uc.events.CountByUser(ctx, userID, entity.AuditActionAgentVerify)
	if err != nil {
		return nil, apperr.ErrDatabaseError("count verifications", err)
	}

	recent, err := uc.events.ListRecentByUser(ctx, userID, overviewRecentLimit)
	if err != nil {
		return nil, apperr.ErrDatabaseError("list recent audit events", err)
	}

	agentIDs, err := uc.events.DistinctAgentIDsByUser(ctx, userID, overviewAgentLimit)
	if err != nil {
		return nil, apperr.ErrDatabaseError("list touched agents", err)
	}

	lastAgents := make([]*entity.Agent, 0, len(agentIDs))
	for _, id := range agentIDs {
		agent, err := uc.agents.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, outbound.ErrAgentNotFound) {
				continue
			}
			return nil, apperr.ErrDatabaseError("find touched agent", err)
		}
		lastAgents = append(lastAgents, agent)
	}

	return &inbound.DashboardOverview{
		UserID:             userID,
		TotalActions:       total,
		TotalSimulations:   simulations,
		TotalExecutions:    executions,
		TotalVerifications: verifications,
		RecentActivity:     recent,
		LastAgents:         lastAgents,
	}, nil
}
