package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/agentity/agentity/domain/entity"
)

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrDuplicatePublicKey = errors.New("public key already registered")
)

// AgentRepository persists agents and their metadata/reputation side records.
// It is the only writer of ledger identity fields on the local row.
type AgentRepository interface {
	Create(ctx context.Context, agent *entity.Agent) error
	FindByID(ctx context.Context, id string) (*entity.Agent, error)
	FindByPublicKey(ctx context.Context, publicKey string) (*entity.Agent, error)
	FindProfile(ctx context.Context, id string) (*entity.AgentProfile, error)
	UpdateStatus(ctx context.Context, id string, status entity.AgentStatus) error

	// ClaimLedgerIdentity atomically sets the ledger identity fields and
	// flips sync status to synced, but only while ledger_identity_id is
	// still null. It returns false when another writer already claimed the
	// row, which is how at-most-one ledger identity per agent is enforced
	// across processes.
	ClaimLedgerIdentity(ctx context.Context, agentID string, ledgerID int64, txRef string, registeredAt time.Time) (bool, error)

	// MarkSyncFailed records the last mirror error. It never regresses an
	// agent that already reached synced.
	MarkSyncFailed(ctx context.Context, agentID string, syncErr string) error

	// ListUnsynced returns agents whose sync status is pending or failed,
	// oldest first, for the reconciliation sweep.
	ListUnsynced(ctx context.Context, limit int) ([]*entity.Agent, error)

	CreateMetadata(ctx context.Context, meta *entity.AgentMetadata) error
	CreateReputation(ctx context.Context, rep *entity.AgentReputation) error
	UpdateReputation(ctx context.Context, agentID string, score float64, riskLevel string) error
}
