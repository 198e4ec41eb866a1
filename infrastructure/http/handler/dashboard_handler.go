package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/infrastructure/http/middleware"
	"github.com/agentity/agentity/infrastructure/http/response"
)

// DashboardHandler serves the per-user activity overview. Unlike the agent
// routes, the dashboard is meaningless without a caller identity, so auth
// is mandatory here.
type DashboardHandler struct {
	dashboard inbound.DashboardUseCase
}

func NewDashboardHandler(dashboard inbound.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router, auth *middleware.AuthMiddleware) {
	router.HandleFunc("/v1/dashboard/overview", auth.RequireAuth(h.Overview)).Methods(http.MethodGet)
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Valid bearer token required")
		return
	}

	overview, err := h.dashboard.Overview(r.Context(), claims.UserID)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "success", overview)
}
