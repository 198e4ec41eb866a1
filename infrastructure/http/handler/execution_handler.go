package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/domain/entity"
	"github.com/agentity/agentity/infrastructure/http/middleware"
	"github.com/agentity/agentity/infrastructure/http/response"
)

// ExecutionHandler exposes the simulate-then-dispatch execution flow.
type ExecutionHandler struct {
	execution inbound.ExecutionUseCase
	audit     inbound.AuditRecorder
}

func NewExecutionHandler(execution inbound.ExecutionUseCase, audit inbound.AuditRecorder) *ExecutionHandler {
	return &ExecutionHandler{execution: execution, audit: audit}
}

func (h *ExecutionHandler) RegisterRoutes(router *mux.Router, auth *middleware.AuthMiddleware) {
	router.HandleFunc("/v1/execution/{id}", auth.OptionalAuth(h.Execute)).Methods(http.MethodPost)
}

func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	resp, err := h.execution.Execute(r.Context(), agentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	payload := map[string]interface{}{
		"status": resp.Execution.Status,
	}
	if resp.Simulation != nil {
		payload["risk_score"] = resp.Simulation.RiskScore
	}
	recordAudit(h.audit, r, entity.AuditActionExecute, &agentID, payload)
	response.Success(w, http.StatusOK, "Execution dispatched", resp)
}
