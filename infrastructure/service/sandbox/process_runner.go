package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// ProcessRunner executes the agent sandbox as a child process (typically a
// container run) with a hard wall-clock timeout. The child's contract: one
// JSON result object on stdout, then exit. CommandContext kills the process
// on deadline or caller cancellation, so no run leaves an orphan behind.
type ProcessRunner struct {
	command []string
	timeout time.Duration
	log     logger.Logger
}

// RunnerConfig configures the sandbox command line and its budget. The
// agent id is appended as the final argument.
type RunnerConfig struct {
	Command []string
	Timeout time.Duration
}

func NewProcessRunner(cfg RunnerConfig, log logger.Logger) (*ProcessRunner, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("sandbox command is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProcessRunner{command: cfg.Command, timeout: timeout, log: log}, nil
}

var _ outbound.SandboxRunner = (*ProcessRunner)(nil)

func (r *ProcessRunner) Run(ctx context.Context, agentID string) (*outbound.SimulationOutcome, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.command[1:]...), agentID)
	cmd := exec.CommandContext(runCtx, r.command[0], args...)
	// Don't wait on inherited pipes after the kill.
	cmd.WaitDelay = time.Second

	start := time.Now()
	stdout, err := cmd.Output()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		r.log.Warn(ctx, "sandbox killed on timeout", map[string]interface{}{
			"agent_id": agentID,
			"timeout":  r.timeout.String(),
		})
		return nil, fmt.Errorf("sandbox for agent %s exceeded %s: %w", agentID, r.timeout, outbound.ErrSandboxTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("sandbox exited with %d: %s: %w",
				exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)), outbound.ErrInvalidSandboxOutput)
		}
		return nil, fmt.Errorf("sandbox spawn failed: %v: %w", err, outbound.ErrInvalidSandboxOutput)
	}

	outcome, err := parseOutcome(stdout)
	if err != nil {
		return nil, err
	}

	r.log.Info(ctx, "sandbox run completed", map[string]interface{}{
		"agent_id":   agentID,
		"risk_score": outcome.RiskScore,
		"duration":   elapsed.String(),
	})
	return outcome, nil
}

// parseOutcome expects exactly one JSON object on stdout (trailing
// whitespace tolerated) with a risk score inside [0,1].
func parseOutcome(stdout []byte) (*outbound.SimulationOutcome, error) {
	trimmed := strings.TrimSpace(string(stdout))
	if trimmed == "" {
		return nil, fmt.Errorf("sandbox produced no output: %w", outbound.ErrInvalidSandboxOutput)
	}

	var outcome outbound.SimulationOutcome
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	if err := decoder.Decode(&outcome); err != nil {
		return nil, fmt.Errorf("sandbox output is not valid JSON: %v: %w", err, outbound.ErrInvalidSandboxOutput)
	}
	if decoder.More() {
		return nil, fmt.Errorf("sandbox produced more than one result: %w", outbound.ErrInvalidSandboxOutput)
	}
	if outcome.RiskScore < 0 || outcome.RiskScore > 1 {
		return nil, fmt.Errorf("risk score %f outside [0,1]: %w", outcome.RiskScore, outbound.ErrInvalidSandboxOutput)
	}
	return &outcome, nil
}
