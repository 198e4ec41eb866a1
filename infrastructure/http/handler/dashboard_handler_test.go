package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/infrastructure/http/middleware"
)

type mockDashboard struct {
	overview *inbound.DashboardOverview
	err      error
	gotUser  string
}

func (m *mockDashboard) Overview(ctx context.Context, userID string) (*inbound.DashboardOverview, error) {
	m.gotUser = userID
	return m.overview, m.err
}

func TestDashboardHandler_RequiresAuth(t *testing.T) {
	router := mux.NewRouter()
	auth := middleware.NewAuthMiddleware(mockTokenService{})
	NewDashboardHandler(&mockDashboard{}).RegisterRoutes(router, auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/overview", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandler_Overview(t *testing.T) {
	dashboard := &mockDashboard{overview: &inbound.DashboardOverview{UserID: "user123", TotalActions: 3}}
	router := mux.NewRouter()
	auth := middleware.NewAuthMiddleware(mockTokenService{})
	NewDashboardHandler(dashboard).RegisterRoutes(router, auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/overview", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user123", dashboard.gotUser)
}
