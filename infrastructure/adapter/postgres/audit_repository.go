package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) outbound.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, event *entity.AuditEvent) error {
	payload, err := marshalPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	query := `
		INSERT INTO user_agent_events (id, user_id, agent_id, action, payload, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.AgentID, event.Action, payload,
		nullableString(event.IP), nullableString(event.UserAgent), event.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

func (r *auditRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*entity.AuditEvent, error) {
	query := `
		SELECT id, user_id, agent_id, action, payload, ip, user_agent, created_at
		FROM user_agent_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*entity.AuditEvent
	for rows.Next() {
		var event entity.AuditEvent
		var payload []byte
		var ip, userAgent sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.AgentID,
			&event.Action,
			&payload,
			&ip,
			&userAgent,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		event.IP = ip.String
		event.UserAgent = userAgent.String
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (r *auditRepository) CountByUser(ctx context.Context, userID string, action string) (int, error) {
	var count int
	var err error
	if action == "" {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM user_agent_events WHERE user_id = $1`, userID).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM user_agent_events WHERE user_id = $1 AND action = $2`, userID, action).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

func (r *auditRepository) DistinctAgentIDsByUser(ctx context.Context, userID string, limit int) ([]string, error) {
	query := `
		SELECT agent_id
		FROM user_agent_events
		WHERE user_id = $1 AND agent_id IS NOT NULL
		GROUP BY agent_id
		ORDER BY MAX(created_at) DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list touched agents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan agent id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
