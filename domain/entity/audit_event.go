package entity

import (
	"time"
)

// Audit action names for caller-facing operations.
const (
	AuditActionAgentRegister = "agent_register"
	AuditActionAgentFetch    = "agent_fetch"
	AuditActionAgentVerify   = "agent_verify"
	AuditActionAgentAction   = "agent_action"
	AuditActionAgentSync     = "agent_sync_retry"
	AuditActionLedgerAudit   = "agent_ledger_audit"
	AuditActionSimulate      = "agent_simulate"
	AuditActionExecute       = "agent_execute"
)

// AuditEvent is an attributed, append-only record of a user-initiated action.
// Events are only written for authenticated callers and are never mutated.
type AuditEvent struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	AgentID   *string                `json:"agent_id,omitempty"`
	Action    string                 `json:"action"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
