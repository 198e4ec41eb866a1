package outbound

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLedgerUnavailable marks transient ledger failures that a later
	// retry may resolve.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrLedgerRejected marks permanent ledger failures; retrying the same
	// request will not succeed.
	ErrLedgerRejected = errors.New("ledger rejected request")
)

// LedgerIdentity is the on-chain view of a registered agent identity.
type LedgerIdentity struct {
	LedgerID     int64     `json:"ledger_id"`
	TxRef        string    `json:"tx_ref"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Capabilities []string  `json:"capabilities,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// LedgerAction is one action logged against a ledger identity.
type LedgerAction struct {
	ActionID   int64     `json:"action_id"`
	TxRef      string    `json:"tx_ref"`
	ActionType string    `json:"action_type"`
	ActionData string    `json:"action_data,omitempty"`
	Result     string    `json:"result,omitempty"`
	LoggedAt   time.Time `json:"logged_at"`
}

// RegisterIdentityRequest carries the identity attributes mirrored on
// registration. IdempotencyKey scopes the write to one local agent so a
// retried call cannot mint a second on-chain identity.
type RegisterIdentityRequest struct {
	Name           string
	Version        string
	Capabilities   []string
	IdempotencyKey string
}

// LogActionRequest carries one action to append to a ledger identity.
type LogActionRequest struct {
	ActionType string
	ActionData string
	Result     string
}

// LedgerClient is the boundary to the external append-only ledger. Calls
// are network-bound and must honor the context deadline; writes cannot be
// rolled back once accepted.
type LedgerClient interface {
	RegisterIdentity(ctx context.Context, req RegisterIdentityRequest) (*LedgerIdentity, error)
	LogAction(ctx context.Context, ledgerID int64, req LogActionRequest) (*LedgerAction, error)
	ReadIdentity(ctx context.Context, ledgerID int64) (*LedgerIdentity, error)
	ReadActionHistory(ctx context.Context, ledgerID int64) ([]LedgerAction, error)

	// Enabled reports whether a real ledger is configured. A disabled
	// client fails every call with ErrLedgerUnavailable.
	Enabled() bool
}
