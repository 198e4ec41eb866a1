package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
)

const uniqueViolation = "23505"

type agentRepository struct {
	db *sql.DB
}

func NewAgentRepository(db *sql.DB) outbound.AgentRepository {
	return &agentRepository{db: db}
}

const agentColumns = `
	id, name, public_key, fingerprint, status, sync_status, sync_error,
	ledger_identity_id, ledger_tx_ref, ledger_registered_at, created_at, updated_at
`

func (r *agentRepository) Create(ctx context.Context, agent *entity.Agent) error {
	query := `
		INSERT INTO agents (id, name, public_key, fingerprint, status, sync_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		agent.ID,
		agent.Name,
		agent.PublicKey,
		agent.Fingerprint,
		agent.Status,
		agent.SyncStatus,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return outbound.ErrDuplicatePublicKey
		}
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

func (r *agentRepository) FindByID(ctx context.Context, id string) (*entity.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return r.scanAgent(r.db.QueryRowContext(ctx, query, id))
}

func (r *agentRepository) FindByPublicKey(ctx context.Context, publicKey string) (*entity.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE public_key = $1`
	return r.scanAgent(r.db.QueryRowContext(ctx, query, publicKey))
}

func (r *agentRepository) scanAgent(row *sql.Row) (*entity.Agent, error) {
	var agent entity.Agent
	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.PublicKey,
		&agent.Fingerprint,
		&agent.Status,
		&agent.SyncStatus,
		&agent.SyncError,
		&agent.LedgerIdentityID,
		&agent.LedgerTxRef,
		&agent.LedgerRegisteredAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to scan agent: %w", err)
	}
	return &agent, nil
}

// FindProfile composes the agent with its metadata and reputation rows via
// explicit left joins, so a missing side record degrades to nil instead of
// dropping the agent.
func (r *agentRepository) FindProfile(ctx context.Context, id string) (*entity.AgentProfile, error) {
	query := `
		SELECT
			a.id, a.name, a.public_key, a.fingerprint, a.status, a.sync_status, a.sync_error,
			a.ledger_identity_id, a.ledger_tx_ref, a.ledger_registered_at, a.created_at, a.updated_at,
			m.id, m.model_name, m.version, m.execution_environment, m.created_at, m.updated_at,
			rep.id, rep.score, rep.risk_level, rep.created_at, rep.updated_at
		FROM agents a
		LEFT JOIN agent_metadata m ON m.agent_id = a.id
		LEFT JOIN agent_reputation rep ON rep.agent_id = a.id
		WHERE a.id = $1
	`

	var agent entity.Agent
	var metaID, metaModel, metaVersion, metaEnv sql.NullString
	var metaCreated, metaUpdated sql.NullTime
	var repID, repLevel sql.NullString
	var repScore sql.NullFloat64
	var repCreated, repUpdated sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&agent.ID,
		&agent.Name,
		&agent.PublicKey,
		&agent.Fingerprint,
		&agent.Status,
		&agent.SyncStatus,
		&agent.SyncError,
		&agent.LedgerIdentityID,
		&agent.LedgerTxRef,
		&agent.LedgerRegisteredAt,
		&agent.CreatedAt,
		&agent.UpdatedAt,
		&metaID, &metaModel, &metaVersion, &metaEnv, &metaCreated, &metaUpdated,
		&repID, &repScore, &repLevel, &repCreated, &repUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrAgentNotFound
		}
		return nil, fmt.Errorf("failed to find agent profile: %w", err)
	}

	profile := &entity.AgentProfile{Agent: &agent}
	if metaID.Valid {
		profile.Metadata = &entity.AgentMetadata{
			ID:                   metaID.String,
			AgentID:              agent.ID,
			ModelName:            metaModel.String,
			Version:              metaVersion.String,
			ExecutionEnvironment: metaEnv.String,
			CreatedAt:            metaCreated.Time,
			UpdatedAt:            metaUpdated.Time,
		}
	}
	if repID.Valid {
		profile.Reputation = &entity.AgentReputation{
			ID:        repID.String,
			AgentID:   agent.ID,
			Score:     repScore.Float64,
			RiskLevel: repLevel.String,
			CreatedAt: repCreated.Time,
			UpdatedAt: repUpdated.Time,
		}
	}
	return profile, nil
}

func (r *agentRepository) UpdateStatus(ctx context.Context, id string, status entity.AgentStatus) error {
	query := `UPDATE agents SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update agent status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return outbound.ErrAgentNotFound
	}
	return nil
}

// ClaimLedgerIdentity is the compare-and-set behind the at-most-one ledger
// identity invariant: the write only lands while ledger_identity_id is
// still null, so a concurrent or retried mirror cannot overwrite a claim.
func (r *agentRepository) ClaimLedgerIdentity(ctx context.Context, agentID string, ledgerID int64, txRef string, registeredAt time.Time) (bool, error) {
	query := `
		UPDATE agents
		SET ledger_identity_id = $2,
		    ledger_tx_ref = $3,
		    ledger_registered_at = $4,
		    sync_status = 'synced',
		    sync_error = NULL,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND ledger_identity_id IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, agentID, ledgerID, txRef, registeredAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim ledger identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkSyncFailed records the mirror error without ever regressing a synced
// agent.
func (r *agentRepository) MarkSyncFailed(ctx context.Context, agentID string, syncErr string) error {
	query := `
		UPDATE agents
		SET sync_status = 'failed', sync_error = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND sync_status <> 'synced'
	`
	if _, err := r.db.ExecContext(ctx, query, agentID, syncErr); err != nil {
		return fmt.Errorf("failed to mark sync failed: %w", err)
	}
	return nil
}

func (r *agentRepository) ListUnsynced(ctx context.Context, limit int) ([]*entity.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE sync_status IN ('pending', 'failed')
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced agents: %w", err)
	}
	defer rows.Close()

	var agents []*entity.Agent
	for rows.Next() {
		var agent entity.Agent
		if err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.PublicKey,
			&agent.Fingerprint,
			&agent.Status,
			&agent.SyncStatus,
			&agent.SyncError,
			&agent.LedgerIdentityID,
			&agent.LedgerTxRef,
			&agent.LedgerRegisteredAt,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unsynced agent: %w", err)
		}
		agents = append(agents, &agent)
	}
	return agents, rows.Err()
}

func (r *agentRepository) CreateMetadata(ctx context.Context, meta *entity.AgentMetadata) error {
	query := `
		INSERT INTO agent_metadata (id, agent_id, model_name, version, execution_environment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		meta.ID, meta.AgentID, meta.ModelName, meta.Version, meta.ExecutionEnvironment,
		meta.CreatedAt, meta.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create agent metadata: %w", err)
	}
	return nil
}

func (r *agentRepository) CreateReputation(ctx context.Context, rep *entity.AgentReputation) error {
	query := `
		INSERT INTO agent_reputation (id, agent_id, score, risk_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		rep.ID, rep.AgentID, rep.Score, rep.RiskLevel, rep.CreatedAt, rep.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create agent reputation: %w", err)
	}
	return nil
}

func (r *agentRepository) UpdateReputation(ctx context.Context, agentID string, score float64, riskLevel string) error {
	query := `
		UPDATE agent_reputation
		SET score = $2, risk_level = $3, updated_at = CURRENT_TIMESTAMP
		WHERE agent_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, agentID, score, riskLevel); err != nil {
		return fmt.Errorf("failed to update agent reputation: %w", err)
	}
	return nil
}
