package outbound

import (
	"context"
	"errors"
)

var (
	// ErrSandboxTimeout means the child process exceeded its wall-clock
	// budget and was killed before producing a result.
	ErrSandboxTimeout = errors.New("sandbox timed out")
	// ErrInvalidSandboxOutput means the child exited but its output was
	// not a single well-formed result.
	ErrInvalidSandboxOutput = errors.New("invalid sandbox output")
)

// SimulationOutcome is the single structured result a sandbox run emits.
type SimulationOutcome struct {
	AgentID   string  `json:"agentId"`
	RiskScore float64 `json:"riskScore"`
	Status    string  `json:"status"`
}

// SandboxRunner executes an agent's behavior in an isolated child process.
// The process is terminated on every exit path, including caller
// cancellation; no run may leave an orphaned process behind.
type SandboxRunner interface {
	Run(ctx context.Context, agentID string) (*SimulationOutcome, error)
}
