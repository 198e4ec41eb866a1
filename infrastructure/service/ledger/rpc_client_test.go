package ledger

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
	return logger.NewStructuredLogger(logger.Config{Level: "debug", Format: "text", ServiceName: "ledger-test"})
}

func TestRegisterIdentity_Success(t *testing.T) {
	var gotIdempotencyKey, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/identities", r.URL.Path)
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "atlas", body["name"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ledger_id":     42,
			"tx_ref":        "0xabc",
			"name":          "atlas",
			"version":       "1.0.0",
			"registered_at": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	defer server.Close()

	client := NewRPCClient(ClientConfig{BaseURL: server.URL, APIKey: "secret"}, testLog())
	identity, err := client.RegisterIdentity(context.Background(), outbound.RegisterIdentityRequest{
		Name:           "atlas",
		Version:        "1.0.0",
		IdempotencyKey: "agent-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), identity.LedgerID)
	assert.Equal(t, "0xabc", identity.TxRef)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, IdempotencyKey("agent-1"), gotIdempotencyKey)
}

func TestRegisterIdentity_RejectedOn4xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "duplicate identity", http.StatusConflict)
	}))
	defer server.Close()

	client := NewRPCClient(ClientConfig{BaseURL: server.URL}, testLog())
	_, err := client.RegisterIdentity(context.Background(), outbound.RegisterIdentityRequest{Name: "atlas"})
	require.Error(t, err)
	assert.ErrorIs(t, err, outbound.ErrLedgerRejected)
}

func TestRegisterIdentity_ThrottledIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewRPCClient(ClientConfig{BaseURL: server.URL}, testLog())
	_, err := client.RegisterIdentity(context.Background(), outbound.RegisterIdentityRequest{Name: "atlas"})
	require.Error(t, err)

	// 429 must stay retryable so reconciliation keeps picking the agent up.
	assert.ErrorIs(t, err, outbound.ErrLedgerUnavailable)
	assert.NotErrorIs(t, err, outbound.ErrLedgerRejected)
}

func TestRegisterIdentity_UnavailableOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRPCClient(ClientConfig{BaseURL: server.URL}, testLog())
	_, err := client.RegisterIdentity(context.Background(), outbound.RegisterIdentityRequest{Name: "atlas"})
	require.Error(t, err)
	assert.ErrorIs(t, err, outbound.ErrLedgerUnavailable)
}

func TestRegisterIdentity_UnavailableOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewRPCClient(ClientConfig{BaseURL: server.URL}, testLog())
	_, err := client.RegisterIdentity(context.Background(), outbound.RegisterIdentityRequest{Name: "atlas"})
	require.Error(t, err)
	assert.ErrorIs(t, err, outbound.ErrLedgerUnavailable)
}

func TestLogAction_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/identities/42/actions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"action_id":   7,
			"tx_ref":      "0xact",
			"action_type": "observe",
			"logged_at":   time.Now().UTC().Format(time.RFC3339),
		})
	}))
	defer server.Close()

	client := NewRPCClient(ClientConfig{BaseURL: server.URL}, testLog())
	action, err := client.LogAction(context.Background(), 42, outbound.LogActionRequest{ActionType: "observe"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), action.ActionID)
	assert.Equal(t, "0xact", action.TxRef)
}

func TestReadActionHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/identities/42/actions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"actions": []map[string]interface{}{
				{"action_id": 1, "tx_ref": "0x1", "action_type": "observe"},
				{"action_id": 2, "tx_ref": "0x2", "action_type": "execution"},
			},
		})
	}))
	defer server.Close()

	client := NewRPCClient(ClientConfig{BaseURL: server.URL}, testLog())
	actions, err := client.ReadActionHistory(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, int64(1), actions[0].ActionID)
	assert.Equal(t, "execution", actions[1].ActionType)
}

func TestUnconfiguredClientFails(t *testing.T) {
	client := NewRPCClient(ClientConfig{}, testLog())
	assert.False(t, client.Enabled())
	_, err := client.ReadIdentity(context.Background(), 1)
	assert.ErrorIs(t, err, outbound.ErrLedgerUnavailable)
}

func TestIdempotencyKey(t *testing.T) {
	key := IdempotencyKey("agent-1")
	assert.Len(t, key, 64)
	assert.Equal(t, key, IdempotencyKey("agent-1"))
	assert.NotEqual(t, key, IdempotencyKey("agent-2"))
	assert.Empty(t, IdempotencyKey(""))
}
