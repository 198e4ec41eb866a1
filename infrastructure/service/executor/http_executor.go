package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// HTTPExecutor invokes the external execution endpoint with a bearer
// credential. An unconfigured endpoint is an expected deployment state, not
// an error: Execute then produces a local synthetic result marked fallback.
type HTTPExecutor struct {
	endpointURL string
	apiKey      string
	httpClient  *http.Client
	log         logger.Logger
}

type Config struct {
	EndpointURL string
	APIKey      string
	Timeout     time.Duration
}

func NewHTTPExecutor(cfg Config, log logger.Logger) *HTTPExecutor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPExecutor{
		endpointURL: cfg.EndpointURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}
}

var _ outbound.ExecutionEndpoint = (*HTTPExecutor)(nil)

func (e *HTTPExecutor) Configured() bool {
	return e.endpointURL != ""
}

func (e *HTTPExecutor) Execute(ctx context.Context, payload outbound.ExecutionPayload) (*outbound.ExecutionResult, error) {
	if !e.Configured() {
		e.log.Warn(ctx, "execution endpoint not configured, using fallback", map[string]interface{}{
			"agent_id": payload.AgentID,
		})
		return &outbound.ExecutionResult{
			Status:     "executed",
			Fallback:   true,
			ExecutedAt: time.Now().UTC(),
			Details: map[string]interface{}{
				"agent_id":       payload.AgentID,
				"agent_name":     payload.AgentName,
				"fingerprint":    payload.Fingerprint,
				"risk_score":     payload.RiskScore,
				"classification": payload.Classification,
			},
		}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode execution payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution request: %v: %w", err, outbound.ErrExecutionFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("execution endpoint returned %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(msg), outbound.ErrExecutionFailed)
	}

	var result outbound.ExecutionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode execution response: %v: %w", err, outbound.ErrExecutionFailed)
	}
	if result.Status == "" {
		result.Status = "executed"
	}
	if result.ExecutedAt.IsZero() {
		result.ExecutedAt = time.Now().UTC()
	}
	return &result, nil
}
