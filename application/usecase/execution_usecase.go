package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain"
	apperr "github.com/agentity/agentity/domain/error"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// ExecutionUseCase is the execution dispatcher: it gates on verification,
// simulates first, short-circuits high-risk agents, and otherwise invokes
// the execution endpoint. Endpoint failures surface to the caller since
// execution is the explicit purpose of the call; only the unconfigured
// endpoint falls back to a local synthetic result.
type ExecutionUseCase struct {
	agents     outbound.AgentRepository
	simulation inbound.SimulationUseCase
	lifecycle  inbound.AgentLifecycleUseCase
	endpoint   outbound.ExecutionEndpoint
	log        logger.Logger
}

func NewExecutionUseCase(
	agents outbound.AgentRepository,
	simulation inbound.SimulationUseCase,
	lifecycle inbound.AgentLifecycleUseCase,
	endpoint outbound.ExecutionEndpoint,
	log logger.Logger,
) *ExecutionUseCase {
	return &ExecutionUseCase{
		agents:     agents,
		simulation: simulation,
		lifecycle:  lifecycle,
		endpoint:   endpoint,
		log:        log,
	}
}

var _ inbound.ExecutionUseCase = (*ExecutionUseCase)(nil)

func (uc *ExecutionUseCase) Execute(ctx context.Context, agentID string) (*inbound.ExecutionResponse, error) {
	agent, err := uc.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, outbound.ErrAgentNotFound) {
			return nil, apperr.ErrAgentNotFound(agentID)
		}
		return nil, apperr.ErrDatabaseError("find agent", err)
	}
	if !agent.IsVerified() {
		return nil, apperr.ErrPreconditionFailed("agent must be verified before execution")
	}

	simulation, err := uc.simulation.Simulate(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	// Policy gate: a high-risk simulation denies execution before the
	// endpoint is ever contacted.
	if domain.HighRisk(simulation.RiskScore) {
		uc.log.Warn(ctx, "execution denied for high-risk agent", map[string]interface{}{
			"agent_id":   agent.ID,
			"risk_score": simulation.RiskScore,
		})
		return &inbound.ExecutionResponse{
			Simulation: simulation,
			Execution: &outbound.ExecutionResult{
				Status:     "denied",
				ExecutedAt: time.Now().UTC(),
				Details: map[string]interface{}{
					"reason":     "risk score above execution threshold",
					"risk_score": simulation.RiskScore,
				},
			},
		}, nil
	}

	result, err := uc.endpoint.Execute(ctx, outbound.ExecutionPayload{
		AgentID:        agent.ID,
		AgentName:      agent.Name,
		Fingerprint:    agent.Fingerprint,
		RiskScore:      simulation.RiskScore,
		Classification: simulation.Classification,
	})
	if err != nil {
		return nil, apperr.ErrExecutionFailed(agent.ID, err)
	}

	// Record the execution as a behavior event; mirrored to the ledger by
	// the lifecycle path when the agent is synced.
	if _, err := uc.lifecycle.RecordAction(ctx, agent.ID, inbound.RecordActionRequest{
		ActionType: "execution",
		ActionData: map[string]interface{}{
			"fallback":       result.Fallback,
			"classification": simulation.Classification,
		},
		Result:    result.Status,
		RiskScore: simulation.RiskScore,
	}); err != nil {
		uc.log.Warn(ctx, "failed to record execution action", map[string]interface{}{
			"agent_id": agent.ID,
			"reason":   err.Error(),
		})
	}

	return &inbound.ExecutionResponse{
		Simulation: simulation,
		Execution:  result,
	}, nil
}
