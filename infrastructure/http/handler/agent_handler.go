package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/domain/entity"
	"github.com/agentity/agentity/infrastructure/http/middleware"
	"github.com/agentity/agentity/infrastructure/http/response"
	"github.com/agentity/agentity/infrastructure/http/validator"
)

// AgentHandler exposes the agent lifecycle operations.
type AgentHandler struct {
	lifecycle inbound.AgentLifecycleUseCase
	audit     inbound.AuditRecorder
}

func NewAgentHandler(lifecycle inbound.AgentLifecycleUseCase, audit inbound.AuditRecorder) *AgentHandler {
	return &AgentHandler{lifecycle: lifecycle, audit: audit}
}

// RegisterRoutes wires the agent endpoints. Registration is additionally
// rate limited per IP; all routes take optional auth so audit events can be
// attributed when a caller is authenticated.
func (h *AgentHandler) RegisterRoutes(router *mux.Router, auth *middleware.AuthMiddleware, limit *middleware.RateLimitMiddleware) {
	router.HandleFunc("/v1/agents/register", limit.RateLimit(auth.OptionalAuth(h.Register))).Methods(http.MethodPost)
	router.HandleFunc("/v1/agents/{id}", auth.OptionalAuth(h.Get)).Methods(http.MethodGet)
	router.HandleFunc("/v1/agents/{id}/verify", auth.OptionalAuth(h.Verify)).Methods(http.MethodPost)
	router.HandleFunc("/v1/agents/{id}/actions", auth.OptionalAuth(h.RecordAction)).Methods(http.MethodPost)
	router.HandleFunc("/v1/agents/{id}/sync", auth.OptionalAuth(h.RetrySync)).Methods(http.MethodPost)
	router.HandleFunc("/v1/agents/{id}/ledger-audit", auth.OptionalAuth(h.LedgerAudit)).Methods(http.MethodGet)
}

func (h *AgentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req inbound.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRequired(req.Name) {
		response.UnprocessableEntity(w, "agent_name is required")
		return
	}
	if !validator.ValidateRequired(req.PublicKey) {
		response.UnprocessableEntity(w, "public_key is required")
		return
	}

	agent, err := h.lifecycle.Register(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.recordAudit(r, entity.AuditActionAgentRegister, &agent.ID, map[string]interface{}{
		"sync_status": agent.SyncStatus,
	})
	response.Success(w, http.StatusCreated, "Agent registered", agent)
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	profile, err := h.lifecycle.GetProfile(r.Context(), agentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.recordAudit(r, entity.AuditActionAgentFetch, &agentID, nil)
	response.Success(w, http.StatusOK, "success", profile)
}

func (h *AgentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	agent, err := h.lifecycle.Verify(r.Context(), agentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.recordAudit(r, entity.AuditActionAgentVerify, &agentID, nil)
	response.Success(w, http.StatusOK, "Agent verified", agent)
}

func (h *AgentHandler) RecordAction(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]

	var req inbound.RecordActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRequired(req.ActionType) {
		response.UnprocessableEntity(w, "action_type is required")
		return
	}
	if !validator.ValidateRiskScore(req.RiskScore) {
		response.UnprocessableEntity(w, "risk_score must be within [0,1]")
		return
	}

	record, err := h.lifecycle.RecordAction(r.Context(), agentID, req)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.recordAudit(r, entity.AuditActionAgentAction, &agentID, map[string]interface{}{
		"action_type": req.ActionType,
		"record_id":   record.ID,
		"mirrored":    record.Mirrored(),
	})
	response.Success(w, http.StatusCreated, "Action recorded", record)
}

func (h *AgentHandler) RetrySync(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	agent, err := h.lifecycle.RetrySync(r.Context(), agentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.recordAudit(r, entity.AuditActionAgentSync, &agentID, map[string]interface{}{
		"sync_status": agent.SyncStatus,
	})
	response.Success(w, http.StatusOK, "Sync retried", agent)
}

func (h *AgentHandler) LedgerAudit(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	view, err := h.lifecycle.LedgerAudit(r.Context(), agentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	h.recordAudit(r, entity.AuditActionLedgerAudit, &agentID, nil)
	response.Success(w, http.StatusOK, "success", view)
}

func (h *AgentHandler) recordAudit(r *http.Request, action string, agentID *string, payload map[string]interface{}) {
	recordAudit(h.audit, r, action, agentID, payload)
}

// recordAudit builds the attributed audit input from the request. The
// recorder drops events from anonymous callers.
func recordAudit(audit inbound.AuditRecorder, r *http.Request, action string, agentID *string, payload map[string]interface{}) {
	userID := ""
	if claims := middleware.GetUserClaims(r.Context()); claims != nil {
		userID = claims.UserID
	}
	audit.Record(r.Context(), inbound.AuditEventInput{
		UserID:    userID,
		AgentID:   agentID,
		Action:    action,
		Payload:   payload,
		IP:        middleware.ClientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
}
