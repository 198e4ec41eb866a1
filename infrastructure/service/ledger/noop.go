package ledger

import (
	"context"
	"fmt"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// NoopClient stands in when no ledger is configured. Every call fails with
// the transient error so agents park in sync=failed and become eligible for
// reconciliation once a real ledger is wired in.
type NoopClient struct {
	log logger.Logger
}

func NewNoopClient(log logger.Logger) *NoopClient {
	return &NoopClient{log: log}
}

var _ outbound.LedgerClient = (*NoopClient)(nil)

func (c *NoopClient) Enabled() bool { return false }

func (c *NoopClient) RegisterIdentity(ctx context.Context, req outbound.RegisterIdentityRequest) (*outbound.LedgerIdentity, error) {
	c.log.Debug(ctx, "ledger disabled, identity not mirrored", map[string]interface{}{"name": req.Name})
	return nil, fmt.Errorf("ledger not configured: %w", outbound.ErrLedgerUnavailable)
}

func (c *NoopClient) LogAction(ctx context.Context, ledgerID int64, req outbound.LogActionRequest) (*outbound.LedgerAction, error) {
	return nil, fmt.Errorf("ledger not configured: %w", outbound.ErrLedgerUnavailable)
}

func (c *NoopClient) ReadIdentity(ctx context.Context, ledgerID int64) (*outbound.LedgerIdentity, error) {
	return nil, fmt.Errorf("ledger not configured: %w", outbound.ErrLedgerUnavailable)
}

func (c *NoopClient) ReadActionHistory(ctx context.Context, ledgerID int64) ([]outbound.LedgerAction, error) {
	return nil, fmt.Errorf("ledger not configured: %w", outbound.ErrLedgerUnavailable)
}
