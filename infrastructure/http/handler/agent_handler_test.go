package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
	apperr "github.com/agentity/agentity/domain/error"
	"github.com/agentity/agentity/infrastructure/http/middleware"
	"github.com/agentity/agentity/infrastructure/http/response"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

// Mock implementations

type mockLifecycle struct {
	agent   *entity.Agent
	record  *entity.BehaviorRecord
	profile *entity.AgentProfile
	view    *inbound.LedgerAuditView
	err     error
}

func (m *mockLifecycle) Register(ctx context.Context, req inbound.RegisterAgentRequest) (*entity.Agent, error) {
	return m.agent, m.err
}

func (m *mockLifecycle) Verify(ctx context.Context, agentID string) (*entity.Agent, error) {
	return m.agent, m.err
}

func (m *mockLifecycle) RecordAction(ctx context.Context, agentID string, req inbound.RecordActionRequest) (*entity.BehaviorRecord, error) {
	return m.record, m.err
}

func (m *mockLifecycle) GetProfile(ctx context.Context, agentID string) (*entity.AgentProfile, error) {
	return m.profile, m.err
}

func (m *mockLifecycle) RetrySync(ctx context.Context, agentID string) (*entity.Agent, error) {
	return m.agent, m.err
}

func (m *mockLifecycle) LedgerAudit(ctx context.Context, agentID string) (*inbound.LedgerAuditView, error) {
	return m.view, m.err
}

type recordingAudit struct {
	inputs []inbound.AuditEventInput
}

func (r *recordingAudit) Record(ctx context.Context, input inbound.AuditEventInput) {
	r.inputs = append(r.inputs, input)
}

type mockTokenService struct{}

func (mockTokenService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	return "mock-token", nil
}

func (mockTokenService) ValidateAccessToken(token string) (*outbound.TokenClaims, error) {
	if token == "valid-token" {
		return &outbound.TokenClaims{UserID: "user123", Email: "test@example.com"}, nil
	}
	return nil, errors.New("invalid token")
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

type nopLogger struct{}

func (nopLogger) Info(ctx context.Context, message string, fields map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, message string, fields map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
}
func (nopLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {}
func (nopLogger) WithFields(fields map[string]interface{}) logger.Logger                   { return nopLogger{} }

func newTestRouter(lifecycle inbound.AgentLifecycleUseCase, audit inbound.AuditRecorder) *mux.Router {
	router := mux.NewRouter()
	auth := middleware.NewAuthMiddleware(mockTokenService{})
	limit := middleware.NewRateLimitMiddleware(allowAllLimiter{}, nopLogger{}, 100, time.Minute)
	NewAgentHandler(lifecycle, audit).RegisterRoutes(router, auth, limit)
	return router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope
}

func TestAgentHandler_Register(t *testing.T) {
	agent := entity.NewAgent("agent-1", "atlas", "pk", "fp")
	audit := &recordingAudit{}
	router := newTestRouter(&mockLifecycle{agent: agent}, audit)

	body, _ := json.Marshal(map[string]string{"agent_name": "atlas", "public_key": "pk"})
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/register", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Status)

	require.Len(t, audit.inputs, 1)
	assert.Equal(t, "user123", audit.inputs[0].UserID)
	assert.Equal(t, entity.AuditActionAgentRegister, audit.inputs[0].Action)
}

func TestAgentHandler_Register_ValidatesInput(t *testing.T) {
	router := newTestRouter(&mockLifecycle{}, &recordingAudit{})

	cases := []map[string]string{
		{"public_key": "pk"},
		{"agent_name": "atlas"},
	}
	for _, payload := range cases {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/v1/agents/register", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}
}

func TestAgentHandler_Register_DuplicateMapsToConflict(t *testing.T) {
	router := newTestRouter(&mockLifecycle{err: apperr.ErrDuplicateIdentity("Agent ID: other")}, &recordingAudit{})

	body, _ := json.Marshal(map[string]string{"agent_name": "atlas", "public_key": "pk"})
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Status)
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(apperr.ErrCodeDuplicateIdentity), data["code"])
}

func TestAgentHandler_Get_NotFound(t *testing.T) {
	router := newTestRouter(&mockLifecycle{err: apperr.ErrAgentNotFound("missing")}, &recordingAudit{})

	req := httptest.NewRequest(http.MethodGet, "/v1/agents/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentHandler_Verify_PreconditionFailed(t *testing.T) {
	router := newTestRouter(&mockLifecycle{err: apperr.ErrPreconditionFailed("agent is suspended")}, &recordingAudit{})

	req := httptest.NewRequest(http.MethodPost, "/v1/agents/agent-1/verify", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestAgentHandler_RecordAction(t *testing.T) {
	record := entity.NewBehaviorRecord("rec-1", "agent-1", "observe", nil, 0.1)
	router := newTestRouter(&mockLifecycle{record: record}, &recordingAudit{})

	body, _ := json.Marshal(map[string]interface{}{"action_type": "observe", "risk_score": 0.1})
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/agent-1/actions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAgentHandler_RecordAction_RejectsBadRiskScore(t *testing.T) {
	router := newTestRouter(&mockLifecycle{}, &recordingAudit{})

	body, _ := json.Marshal(map[string]interface{}{"action_type": "observe", "risk_score": 1.5})
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/agent-1/actions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAgentHandler_AnonymousCallerNotAudited(t *testing.T) {
	agent := entity.NewAgent("agent-1", "atlas", "pk", "fp")
	audit := &recordingAudit{}
	router := newTestRouter(&mockLifecycle{agent: agent}, audit)

	body, _ := json.Marshal(map[string]string{"agent_name": "atlas", "public_key": "pk"})
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, audit.inputs, 1)
	assert.Empty(t, audit.inputs[0].UserID)
}
