package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/domain/entity"
	apperr "github.com/agentity/agentity/domain/error"
)

func TestDashboardOverview_AggregatesUserActivity(t *testing.T) {
	ctx := context.Background()
	agents := newMockAgentRepository()
	lifecycle := newLifecycle(agents, newMockBehaviorRepository(), newMockLedgerClient(), allowAllLimiter{})
	agent := registerVerified(t, lifecycle, "atlas", "pk-atlas")

	repo := &mockAuditRepository{}
	recorder := NewAuditRecorder(repo, &testLogger{})
	for _, action := range []string{
		entity.AuditActionAgentRegister,
		entity.AuditActionAgentVerify,
		entity.AuditActionSimulate,
		entity.AuditActionSimulate,
		entity.AuditActionExecute,
	} {
		agentID := agent.ID
		recorder.Record(ctx, inbound.AuditEventInput{UserID: "user-1", AgentID: &agentID, Action: action})
	}
	// Another user's events must not leak into the overview.
	recorder.Record(ctx, inbound.AuditEventInput{UserID: "user-2", Action: entity.AuditActionSimulate})

	uc := NewDashboardUseCase(repo, agents)
	overview, err := uc.Overview(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", overview.UserID)
	assert.Equal(t, 5, overview.TotalActions)
	assert.Equal(t, 2, overview.TotalSimulations)
	assert.Equal(t, 1, overview.TotalExecutions)
	assert.Equal(t, 1, overview.TotalVerifications)
	assert.Len(t, overview.RecentActivity, 5)
	require.Len(t, overview.LastAgents, 1)
	assert.Equal(t, agent.ID, overview.LastAgents[0].ID)
}

func TestDashboardOverview_SkipsDeletedAgents(t *testing.T) {
	ctx := context.Background()
	agents := newMockAgentRepository()
	repo := &mockAuditRepository{}
	recorder := NewAuditRecorder(repo, &testLogger{})

	ghost := "agent-gone"
	recorder.Record(ctx, inbound.AuditEventInput{UserID: "user-1", AgentID: &ghost, Action: entity.AuditActionAgentFetch})

	uc := NewDashboardUseCase(repo, agents)
	overview, err := uc.Overview(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, overview.LastAgents)
}

func TestDashboardOverview_RequiresUser(t *testing.T) {
	uc := NewDashboardUseCase(&mockAuditRepository{}, newMockAgentRepository())
	_, err := uc.Overview(context.Background(), "")
	assert.Equal(t, apperr.ErrCodeUnauthorized, apperr.CodeOf(err))
}
