package entity

import (
	"time"
)

// Behavior record event kinds.
const (
	BehaviorKindVerification = "verification"
	BehaviorKindSimulation   = "simulation"
	BehaviorKindExecution    = "execution_action"
)

// BehaviorRecord is one simulation, verification or execution event for an
// agent. The local record is durable on its own; the ledger fields are
// attached by a follow-up update when the action mirror succeeds and the
// record is immutable from then on.
type BehaviorRecord struct {
	ID             string                 `json:"id"`
	AgentID        string                 `json:"agent_id"`
	Kind           string                 `json:"event_type"`
	Payload        map[string]interface{} `json:"event_payload,omitempty"`
	RiskScore      float64                `json:"risk_score"`
	LedgerActionID *int64                 `json:"ledger_action_id,omitempty"`
	LedgerTxRef    *string                `json:"ledger_tx_ref,omitempty"`
	LedgerLoggedAt *time.Time             `json:"ledger_logged_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

func NewBehaviorRecord(id, agentID, kind string, payload map[string]interface{}, riskScore float64) *BehaviorRecord {
	return &BehaviorRecord{
		ID:        id,
		AgentID:   agentID,
		Kind:      kind,
		Payload:   payload,
		RiskScore: riskScore,
		CreatedAt: time.Now().UTC(),
	}
}

// Mirrored reports whether this record has been logged on the ledger.
func (r *BehaviorRecord) Mirrored() bool {
	return r.LedgerActionID != nil
}
