package entity

import (
	"time"
)

// AgentStatus is the verification status of an agent.
type AgentStatus string

const (
	AgentStatusPending   AgentStatus = "pending"
	AgentStatusVerified  AgentStatus = "verified"
	AgentStatusSuspended AgentStatus = "suspended"
)

// SyncStatus tracks whether an agent's identity has been mirrored to the ledger.
// Valid transitions: pending->synced, pending->failed, failed->synced.
// An agent never leaves synced.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// Agent is the identity record of a registered autonomous agent.
// The local row is the authoritative record; the ledger fields are filled
// in by the mirror step and are immutable once set.
type Agent struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	PublicKey          string      `json:"public_key"`
	Fingerprint        string      `json:"fingerprint"`
	Status             AgentStatus `json:"status"`
	SyncStatus         SyncStatus  `json:"sync_status"`
	SyncError          *string     `json:"sync_error,omitempty"`
	LedgerIdentityID   *int64      `json:"ledger_identity_id,omitempty"`
	LedgerTxRef        *string     `json:"ledger_tx_ref,omitempty"`
	LedgerRegisteredAt *time.Time  `json:"ledger_registered_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func NewAgent(id, name, publicKey, fingerprint string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		ID:          id,
		Name:        name,
		PublicKey:   publicKey,
		Fingerprint: fingerprint,
		Status:      AgentStatusPending,
		SyncStatus:  SyncStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsVerified reports whether the agent may enter the simulation/execution paths.
func (a *Agent) IsVerified() bool {
	return a.Status == AgentStatusVerified
}

// Synced reports whether the agent's identity is mirrored on the ledger.
func (a *Agent) Synced() bool {
	return a.SyncStatus == SyncStatusSynced && a.LedgerIdentityID != nil
}

// AgentMetadata holds descriptive attributes recorded at registration.
type AgentMetadata struct {
	ID                   string    `json:"id"`
	AgentID              string    `json:"agent_id"`
	ModelName            string    `json:"model_name"`
	Version              string    `json:"version"`
	ExecutionEnvironment string    `json:"execution_environment"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AgentReputation is the rolling risk assessment of an agent, refreshed by
// simulation outcomes.
type AgentReputation struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	Score     float64   `json:"score"`
	RiskLevel string    `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentProfile is the composed read model returned by profile lookups.
type AgentProfile struct {
	Agent      *Agent           `json:"agent"`
	Metadata   *AgentMetadata   `json:"metadata,omitempty"`
	Reputation *AgentReputation `json:"reputation,omitempty"`
}
