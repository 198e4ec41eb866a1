package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
)

type behaviorRepository struct {
	db *sql.DB
}

func NewBehaviorRepository(db *sql.DB) outbound.BehaviorRepository {
	return &behaviorRepository{db: db}
}

func (r *behaviorRepository) Create(ctx context.Context, record *entity.BehaviorRecord) error {
	payload, err := marshalPayload(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode behavior payload: %w", err)
	}

	query := `
		INSERT INTO behavior_records (id, agent_id, event_type, event_payload, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		record.ID, record.AgentID, record.Kind, payload, record.RiskScore, record.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create behavior record: %w", err)
	}
	return nil
}

// AttachLedgerAction only applies while the record's ledger fields are
// still unset; once mirrored the record is immutable.
func (r *behaviorRepository) AttachLedgerAction(ctx context.Context, recordID string, actionID int64, txRef string, loggedAt time.Time) error {
	query := `
		UPDATE behavior_records
		SET ledger_action_id = $2, ledger_tx_ref = $3, ledger_logged_at = $4
		WHERE id = $1 AND ledger_action_id IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, recordID, actionID, txRef, loggedAt); err != nil {
		return fmt.Errorf("failed to attach ledger action: %w", err)
	}
	return nil
}

func (r *behaviorRepository) ListByAgent(ctx context.Context, agentID string, limit int) ([]*entity.BehaviorRecord, error) {
	query := `
		SELECT id, agent_id, event_type, event_payload, risk_score,
		       ledger_action_id, ledger_tx_ref, ledger_logged_at, created_at
		FROM behavior_records
		WHERE agent_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list behavior records: %w", err)
	}
	defer rows.Close()

	var records []*entity.BehaviorRecord
	for rows.Next() {
		var record entity.BehaviorRecord
		var payload []byte
		if err := rows.Scan(
			&record.ID,
			&record.AgentID,
			&record.Kind,
			&payload,
			&record.RiskScore,
			&record.LedgerActionID,
			&record.LedgerTxRef,
			&record.LedgerLoggedAt,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan behavior record: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &record.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode behavior payload: %w", err)
			}
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

func marshalPayload(payload map[string]interface{}) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}
