package sandbox

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

func testLog() logger.Logger {
	return logger.NewStructuredLogger(logger.Config{Level: "debug", Format: "text", ServiceName: "sandbox-test"})
}

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on sh")
	}
}

func TestRun_ParsesChildOutput(t *testing.T) {
	requireUnix(t)
	runner, err := NewProcessRunner(RunnerConfig{
		Command: []string{"sh", "-c", `echo '{"agentId":"'$0'","riskScore":0.42,"status":"completed"}'`},
		Timeout: 5 * time.Second,
	}, testLog())
	require.NoError(t, err)

	outcome, err := runner.Run(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", outcome.AgentID)
	assert.Equal(t, 0.42, outcome.RiskScore)
	assert.Equal(t, "completed", outcome.Status)
}

func TestRun_KillsChildOnTimeout(t *testing.T) {
	requireUnix(t)
	runner, err := NewProcessRunner(RunnerConfig{
		Command: []string{"sh", "-c", "sleep 30"},
		Timeout: 200 * time.Millisecond,
	}, testLog())
	require.NoError(t, err)

	start := time.Now()
	_, err = runner.Run(context.Background(), "agent-1")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, outbound.ErrSandboxTimeout)
	assert.Less(t, elapsed, 5*time.Second, "run must end shortly after the deadline, not wait for the child")
}

func TestRun_RejectsMalformedOutput(t *testing.T) {
	requireUnix(t)
	runner, err := NewProcessRunner(RunnerConfig{
		Command: []string{"echo", "not json"},
		Timeout: 5 * time.Second,
	}, testLog())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "agent-1")
	assert.ErrorIs(t, err, outbound.ErrInvalidSandboxOutput)
}

func TestRun_RejectsNonZeroExit(t *testing.T) {
	requireUnix(t)
	runner, err := NewProcessRunner(RunnerConfig{
		Command: []string{"sh", "-c", "exit 3"},
		Timeout: 5 * time.Second,
	}, testLog())
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), "agent-1")
	assert.ErrorIs(t, err, outbound.ErrInvalidSandboxOutput)
}

func TestNewProcessRunner_RequiresCommand(t *testing.T) {
	_, err := NewProcessRunner(RunnerConfig{}, testLog())
	assert.Error(t, err)
}

func TestParseOutcome(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		outcome, err := parseOutcome([]byte(`{"agentId":"a","riskScore":0.5,"status":"completed"}` + "\n"))
		require.NoError(t, err)
		assert.Equal(t, 0.5, outcome.RiskScore)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := parseOutcome([]byte("  \n"))
		assert.ErrorIs(t, err, outbound.ErrInvalidSandboxOutput)
	})

	t.Run("multiple objects", func(t *testing.T) {
		_, err := parseOutcome([]byte(`{"riskScore":0.1}{"riskScore":0.2}`))
		assert.ErrorIs(t, err, outbound.ErrInvalidSandboxOutput)
	})

	t.Run("score out of range", func(t *testing.T) {
		_, err := parseOutcome([]byte(`{"riskScore":1.5}`))
		assert.ErrorIs(t, err, outbound.ErrInvalidSandboxOutput)

		_, err = parseOutcome([]byte(`{"riskScore":-0.1}`))
		assert.ErrorIs(t, err, outbound.ErrInvalidSandboxOutput)
	})
}
