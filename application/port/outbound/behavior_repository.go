package outbound

import (
	"context"
	"time"

	"github.com/agentity/agentity/domain/entity"
)

// BehaviorRepository persists the per-agent action stream. Records are
// observed in creation order for one agent.
type BehaviorRepository interface {
	Create(ctx context.Context, record *entity.BehaviorRecord) error

	// AttachLedgerAction fills the ledger fields of a record once its
	// mirror succeeded. It only applies while ledger_action_id is null; a
	// record is immutable after the ledger fields are set.
	AttachLedgerAction(ctx context.Context, recordID string, actionID int64, txRef string, loggedAt time.Time) error

	ListByAgent(ctx context.Context, agentID string, limit int) ([]*entity.BehaviorRecord, error)
}
