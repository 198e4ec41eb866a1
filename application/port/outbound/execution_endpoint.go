package outbound

import (
	"context"
	"errors"
	"time"
)

// ErrExecutionFailed marks a configured execution endpoint that could not
// complete the call (network error, timeout or non-2xx response).
var ErrExecutionFailed = errors.New("execution endpoint call failed")

// ExecutionPayload is the request composed from the agent identity and its
// latest simulation.
type ExecutionPayload struct {
	AgentID        string  `json:"agent_id"`
	AgentName      string  `json:"agent_name"`
	Fingerprint    string  `json:"fingerprint"`
	RiskScore      float64 `json:"risk_score"`
	Classification string  `json:"classification"`
}

// ExecutionResult is the outcome of one execution attempt. Fallback is true
// when no endpoint was configured and a local synthetic result was produced
// instead, which is expected behavior and not an error.
type ExecutionResult struct {
	Status     string                 `json:"status"`
	Fallback   bool                   `json:"fallback"`
	ExecutedAt time.Time              `json:"executed_at"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ExecutionEndpoint invokes the external execution service for an agent.
type ExecutionEndpoint interface {
	Execute(ctx context.Context, payload ExecutionPayload) (*ExecutionResult, error)

	// Configured reports whether a remote endpoint is set. Unconfigured
	// endpoints answer Execute with a fallback result.
	Configured() bool
}
