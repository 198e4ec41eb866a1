package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain"
	"github.com/agentity/agentity/domain/entity"
	apperr "github.com/agentity/agentity/domain/error"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// SimulationUseCase runs an agent's behavior in the sandbox and records the
// outcome. Unverified agents are rejected before the sandbox is touched.
type SimulationUseCase struct {
	agents    outbound.AgentRepository
	behaviors outbound.BehaviorRepository
	sandbox   outbound.SandboxRunner
	log       logger.Logger
}

func NewSimulationUseCase(
	agents outbound.AgentRepository,
	behaviors outbound.BehaviorRepository,
	sandbox outbound.SandboxRunner,
	log logger.Logger,
) *SimulationUseCase {
	return &SimulationUseCase{
		agents:    agents,
		behaviors: behaviors,
		sandbox:   sandbox,
		log:       log,
	}
}

var _ inbound.SimulationUseCase = (*SimulationUseCase)(nil)

func (uc *SimulationUseCase) Simulate(ctx context.Context, agentID string) (*inbound.SimulationResult, error) {
	agent, err := uc.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, outbound.ErrAgentNotFound) {
			return nil, apperr.ErrAgentNotFound(agentID)
		}
		return nil, apperr.ErrDatabaseError("find agent", err)
	}
	if !agent.IsVerified() {
		return nil, apperr.ErrPreconditionFailed("agent must be verified before simulation")
	}

	outcome, err := uc.sandbox.Run(ctx, agent.ID)
	if err != nil {
		switch {
		case errors.Is(err, outbound.ErrSandboxTimeout):
			return nil, apperr.ErrSandboxTimeout(agent.ID)
		case errors.Is(err, outbound.ErrInvalidSandboxOutput):
			return nil, apperr.ErrInvalidSandboxOutput(agent.ID, err)
		default:
			return nil, apperr.ErrInvalidSandboxOutput(agent.ID, err)
		}
	}

	classification := domain.ClassifyRisk(outcome.RiskScore)

	record := entity.NewBehaviorRecord(uuid.NewString(), agent.ID, entity.BehaviorKindSimulation,
		map[string]interface{}{
			"agent_id":       outcome.AgentID,
			"risk_score":     outcome.RiskScore,
			"classification": classification,
		}, outcome.RiskScore)
	if err := uc.behaviors.Create(ctx, record); err != nil {
		return nil, apperr.ErrDatabaseError("create simulation record", err)
	}

	// Refresh the rolling reputation from the latest run. Not a gate, so a
	// failure here is logged and swallowed.
	if err := uc.agents.UpdateReputation(ctx, agent.ID, outcome.RiskScore, domain.ReputationLevel(outcome.RiskScore)); err != nil {
		uc.log.Warn(ctx, "failed to update agent reputation", map[string]interface{}{
			"agent_id": agent.ID,
			"reason":   err.Error(),
		})
	}

	return &inbound.SimulationResult{
		AgentID:        agent.ID,
		RiskScore:      outcome.RiskScore,
		Classification: classification,
		RecordID:       record.ID,
	}, nil
}
