package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/domain/entity"
	"github.com/agentity/agentity/infrastructure/http/middleware"
	"github.com/agentity/agentity/infrastructure/http/response"
)

// SimulationHandler exposes the sandboxed simulation run.
type SimulationHandler struct {
	simulation inbound.SimulationUseCase
	audit      inbound.AuditRecorder
}

func NewSimulationHandler(simulation inbound.SimulationUseCase, audit inbound.AuditRecorder) *SimulationHandler {
	return &SimulationHandler{simulation: simulation, audit: audit}
}

func (h *SimulationHandler) RegisterRoutes(router *mux.Router, auth *middleware.AuthMiddleware) {
	router.HandleFunc("/v1/simulation/{id}", auth.OptionalAuth(h.Simulate)).Methods(http.MethodPost)
}

func (h *SimulationHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]
	result, err := h.simulation.Simulate(r.Context(), agentID)
	if err != nil {
		response.AppError(w, err)
		return
	}

	recordAudit(h.audit, r, entity.AuditActionSimulate, &agentID, map[string]interface{}{
		"risk_score":     result.RiskScore,
		"classification": result.Classification,
	})
	response.Success(w, http.StatusOK, "Simulation complete", result)
}
