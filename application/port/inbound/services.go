package inbound

import (
	"context"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
)

// SimulationResult is the outcome of a sandboxed simulation run.
type SimulationResult struct {
	AgentID        string  `json:"agent_id"`
	RiskScore      float64 `json:"risk_score"`
	Classification string  `json:"classification"`
	RecordID       string  `json:"record_id"`
}

// SimulationUseCase gates the sandbox behind verification and persists the
// resulting behavior record.
type SimulationUseCase interface {
	Simulate(ctx context.Context, agentID string) (*SimulationResult, error)
}

// ExecutionResponse pairs the gating simulation with the execution outcome.
type ExecutionResponse struct {
	Simulation *SimulationResult         `json:"simulation"`
	Execution  *outbound.ExecutionResult `json:"execution"`
}

// ExecutionUseCase simulates, then dispatches execution for safe agents.
// A high-risk simulation yields a denial without touching the endpoint.
type ExecutionUseCase interface {
	Execute(ctx context.Context, agentID string) (*ExecutionResponse, error)
}

// AuditEventInput describes one user-initiated action to record. An empty
// UserID means the caller was anonymous and the event is dropped.
type AuditEventInput struct {
	UserID    string
	AgentID   *string
	Action    string
	Payload   map[string]interface{}
	IP        string
	UserAgent string
}

// AuditRecorder appends attributed audit events. It never fails the
// triggering operation; recorder errors are logged and swallowed.
type AuditRecorder interface {
	Record(ctx context.Context, input AuditEventInput)
}

// DashboardOverview is the per-user activity summary.
type DashboardOverview struct {
	UserID             string               `json:"user_id"`
	TotalActions       int                  `json:"total_actions"`
	TotalSimulations   int                  `json:"total_simulations"`
	TotalExecutions    int                  `json:"total_executions"`
	TotalVerifications int                  `json:"total_verifications"`
	RecentActivity     []*entity.AuditEvent `json:"recent_activity"`
	LastAgents         []*entity.Agent      `json:"last_agents"`
}

type DashboardUseCase interface {
	Overview(ctx context.Context, userID string) (*DashboardOverview, error)
}
