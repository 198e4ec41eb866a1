package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// RPCClient talks to the external ledger gateway over HTTP. Every call
// carries the configured timeout and the split between transient and
// permanent failures follows the response: network errors, 5xx and 429 map
// to ErrLedgerUnavailable, other 4xx to ErrLedgerRejected.
type RPCClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logger.Logger
}

// ClientConfig configures the ledger RPC client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewRPCClient(cfg ClientConfig, log logger.Logger) *RPCClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

var _ outbound.LedgerClient = (*RPCClient)(nil)

func (c *RPCClient) Enabled() bool {
	return c.baseURL != ""
}

type registerIdentityBody struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

type identityResponse struct {
	LedgerID     int64     `json:"ledger_id"`
	TxRef        string    `json:"tx_ref"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Capabilities []string  `json:"capabilities"`
	RegisteredAt time.Time `json:"registered_at"`
}

type logActionBody struct {
	ActionType string `json:"action_type"`
	ActionData string `json:"action_data,omitempty"`
	Result     string `json:"result,omitempty"`
}

type actionResponse struct {
	ActionID   int64     `json:"action_id"`
	TxRef      string    `json:"tx_ref"`
	ActionType string    `json:"action_type"`
	ActionData string    `json:"action_data"`
	Result     string    `json:"result"`
	LoggedAt   time.Time `json:"logged_at"`
}

// RegisterIdentity mirrors one agent identity on the ledger. The
// idempotency key (keccak-256 of the caller's key seed) scopes the write so
// a retried call returns the already-created identity instead of minting a
// second one.
func (c *RPCClient) RegisterIdentity(ctx context.Context, req outbound.RegisterIdentityRequest) (*outbound.LedgerIdentity, error) {
	var out identityResponse
	err := c.do(ctx, http.MethodPost, "/v1/identities", IdempotencyKey(req.IdempotencyKey), registerIdentityBody{
		Name:         req.Name,
		Version:      req.Version,
		Capabilities: req.Capabilities,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &outbound.LedgerIdentity{
		LedgerID:     out.LedgerID,
		TxRef:        out.TxRef,
		Name:         out.Name,
		Version:      out.Version,
		Capabilities: out.Capabilities,
		RegisteredAt: out.RegisteredAt,
	}, nil
}

func (c *RPCClient) LogAction(ctx context.Context, ledgerID int64, req outbound.LogActionRequest) (*outbound.LedgerAction, error) {
	var out actionResponse
	path := fmt.Sprintf("/v1/identities/%d/actions", ledgerID)
	if err := c.do(ctx, http.MethodPost, path, "", logActionBody{
		ActionType: req.ActionType,
		ActionData: req.ActionData,
		Result:     req.Result,
	}, &out); err != nil {
		return nil, err
	}
	return &outbound.LedgerAction{
		ActionID:   out.ActionID,
		TxRef:      out.TxRef,
		ActionType: out.ActionType,
		ActionData: out.ActionData,
		Result:     out.Result,
		LoggedAt:   out.LoggedAt,
	}, nil
}

func (c *RPCClient) ReadIdentity(ctx context.Context, ledgerID int64) (*outbound.LedgerIdentity, error) {
	var out identityResponse
	path := fmt.Sprintf("/v1/identities/%d", ledgerID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &outbound.LedgerIdentity{
		LedgerID:     out.LedgerID,
		TxRef:        out.TxRef,
		Name:         out.Name,
		Version:      out.Version,
		Capabilities: out.Capabilities,
		RegisteredAt: out.RegisteredAt,
	}, nil
}

func (c *RPCClient) ReadActionHistory(ctx context.Context, ledgerID int64) ([]outbound.LedgerAction, error) {
	var out struct {
		Actions []actionResponse `json:"actions"`
	}
	path := fmt.Sprintf("/v1/identities/%d/actions", ledgerID)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	actions := make([]outbound.LedgerAction, 0, len(out.Actions))
	for _, a := range out.Actions {
		actions = append(actions, outbound.LedgerAction{
			ActionID:   a.ActionID,
			TxRef:      a.TxRef,
			ActionType: a.ActionType,
			ActionData: a.ActionData,
			Result:     a.Result,
			LoggedAt:   a.LoggedAt,
		})
	}
	return actions, nil
}

func (c *RPCClient) do(ctx context.Context, method, path, idempotencyKey string, body, out interface{}) error {
	if !c.Enabled() {
		return fmt.Errorf("ledger client not configured: %w", outbound.ErrLedgerUnavailable)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode ledger request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, outbound.ErrLedgerUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode ledger response: %v: %w", err, outbound.ErrLedgerUnavailable)
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		// Throttling is transient, not a verdict on the request; keep it
		// retryable so reconciliation picks the agent up again.
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, outbound.ErrLedgerUnavailable)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s: %w", method, path, resp.StatusCode, bytes.TrimSpace(msg), outbound.ErrLedgerRejected)
	default:
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, outbound.ErrLedgerUnavailable)
	}
}

// IdempotencyKey derives the idempotency header value from a seed (the
// local agent id): keccak-256 hex, matching the digest the ledger itself
// uses for request de-duplication.
func IdempotencyKey(seed string) string {
	if seed == "" {
		return ""
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(seed))
	return hex.EncodeToString(h.Sum(nil))
}
