package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

func testLog() logger.Logger {
	return logger.NewStructuredLogger(logger.Config{Level: "debug", Format: "text", ServiceName: "executor-test"})
}

func TestExecute_FallbackWhenUnconfigured(t *testing.T) {
	exec := NewHTTPExecutor(Config{}, testLog())
	assert.False(t, exec.Configured())

	result, err := exec.Execute(context.Background(), outbound.ExecutionPayload{
		AgentID:   "agent-1",
		AgentName: "atlas",
		RiskScore: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "executed", result.Status)
	assert.True(t, result.Fallback)
	assert.False(t, result.ExecutedAt.IsZero())
	assert.Equal(t, "agent-1", result.Details["agent_id"])
}

func TestExecute_CallsEndpoint(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var payload outbound.ExecutionPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "agent-1", payload.AgentID)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "executed",
			"fallback":    false,
			"executed_at": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	defer server.Close()

	exec := NewHTTPExecutor(Config{EndpointURL: server.URL, APIKey: "secret"}, testLog())
	assert.True(t, exec.Configured())

	result, err := exec.Execute(context.Background(), outbound.ExecutionPayload{AgentID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, "executed", result.Status)
	assert.False(t, result.Fallback)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestExecute_DefaultsSparseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	exec := NewHTTPExecutor(Config{EndpointURL: server.URL}, testLog())
	result, err := exec.Execute(context.Background(), outbound.ExecutionPayload{AgentID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, "executed", result.Status)
	assert.False(t, result.ExecutedAt.IsZero())
}

func TestExecute_FailsOnNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	exec := NewHTTPExecutor(Config{EndpointURL: server.URL}, testLog())
	_, err := exec.Execute(context.Background(), outbound.ExecutionPayload{AgentID: "agent-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, outbound.ErrExecutionFailed)
}

func TestExecute_FailsOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	exec := NewHTTPExecutor(Config{EndpointURL: server.URL}, testLog())
	_, err := exec.Execute(context.Background(), outbound.ExecutionPayload{AgentID: "agent-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, outbound.ErrExecutionFailed)
}
