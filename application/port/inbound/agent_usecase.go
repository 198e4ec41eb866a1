package inbound

import (
	"context"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
)

// RegisterAgentRequest carries everything needed to create a local agent
// record plus its metadata side record.
type RegisterAgentRequest struct {
	Name                 string `json:"agent_name"`
	PublicKey            string `json:"public_key"`
	ModelName            string `json:"model_name"`
	Version              string `json:"version"`
	ExecutionEnvironment string `json:"execution_environment"`
}

// RecordActionRequest carries one behavior event to persist and, when the
// agent is synced, mirror to the ledger.
type RecordActionRequest struct {
	ActionType string                 `json:"action_type"`
	ActionData map[string]interface{} `json:"action_data,omitempty"`
	Result     string                 `json:"result,omitempty"`
	RiskScore  float64                `json:"risk_score"`
}

// LedgerAuditView combines the local sync state with the on-chain identity
// snapshot and action history.
type LedgerAuditView struct {
	Agent     *entity.Agent            `json:"agent"`
	OnChain   *outbound.LedgerIdentity `json:"on_chain,omitempty"`
	Actions   []outbound.LedgerAction  `json:"actions,omitempty"`
	LedgerErr string                   `json:"ledger_error,omitempty"`
}

// AgentLifecycleUseCase owns the agent verification state machine and the
// local-first, ledger-second write path.
type AgentLifecycleUseCase interface {
	Register(ctx context.Context, req RegisterAgentRequest) (*entity.Agent, error)
	Verify(ctx context.Context, agentID string) (*entity.Agent, error)
	RecordAction(ctx context.Context, agentID string, req RecordActionRequest) (*entity.BehaviorRecord, error)
	GetProfile(ctx context.Context, agentID string) (*entity.AgentProfile, error)

	// RetrySync re-runs the identity mirror for an agent stuck in pending
	// or failed. A no-op for agents already synced.
	RetrySync(ctx context.Context, agentID string) (*entity.Agent, error)

	LedgerAudit(ctx context.Context, agentID string) (*LedgerAuditView, error)
}
