package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentity/agentity/application/port/inbound"
	"github.com/agentity/agentity/application/port/outbound"
	"github.com/agentity/agentity/domain/entity"
	apperr "github.com/agentity/agentity/domain/error"
	"github.com/agentity/agentity/infrastructure/service/fingerprint"
	"github.com/agentity/agentity/infrastructure/service/logger"
)

const maxSyncErrorLen = 500

// localWriteTimeout bounds the bookkeeping writes that follow a ledger
// call. They get their own budget: the ledger call may have consumed or
// exhausted its deadline, and the local outcome must still land.
const localWriteTimeout = 5 * time.Second

// LifecycleConfig bounds the ledger mirror step.
type LifecycleConfig struct {
	// RegisterSyncWait is how long Register waits for the async identity
	// mirror before answering with the current sync status.
	RegisterSyncWait time.Duration
	// LedgerTimeout bounds each ledger RPC.
	LedgerTimeout time.Duration
	// MirrorAttempts/MirrorWindow cap mirror retries per agent.
	MirrorAttempts int
	MirrorWindow   time.Duration
}

// AgentLifecycleUseCase owns Agent and BehaviorRecord writes. The local
// store is the commit point for every operation; the ledger mirror is a
// best-effort follow-up whose outcome lands in the agent's sync status.
type AgentLifecycleUseCase struct {
	agents    outbound.AgentRepository
	behaviors outbound.BehaviorRepository
	ledger    outbound.LedgerClient
	limiter   outbound.RateLimiter
	log       logger.Logger
	cfg       LifecycleConfig

	// mirrorLocks serializes mirror attempts per agent in-process. The
	// repository's compare-and-set is the cross-process guarantee; this
	// lock just keeps concurrent retries from burning ledger calls.
	mirrorLocks keyedMutex
}

func NewAgentLifecycleUseCase(
	agents outbound.AgentRepository,
	behaviors outbound.BehaviorRepository,
	ledger outbound.LedgerClient,
	limiter outbound.RateLimiter,
	log logger.Logger,
	cfg LifecycleConfig,
) *AgentLifecycleUseCase {
	if cfg.RegisterSyncWait <= 0 {
		cfg.RegisterSyncWait = 2 * time.Second
	}
	if cfg.LedgerTimeout <= 0 {
		cfg.LedgerTimeout = 10 * time.Second
	}
	if cfg.MirrorAttempts <= 0 {
		cfg.MirrorAttempts = 5
	}
	if cfg.MirrorWindow <= 0 {
		cfg.MirrorWindow = time.Minute
	}
	return &AgentLifecycleUseCase{
		agents:    agents,
		behaviors: behaviors,
		ledger:    ledger,
		limiter:   limiter,
		log:       log,
		cfg:       cfg,
	}
}

var _ inbound.AgentLifecycleUseCase = (*AgentLifecycleUseCase)(nil)

// Register creates the local agent record and kicks off the identity
// mirror. The local write is authoritative: registration succeeds whether
// or not the ledger is reachable, and the response carries whatever sync
// status the bounded wait observed.
func (uc *AgentLifecycleUseCase) Register(ctx context.Context, req inbound.RegisterAgentRequest) (*entity.Agent, error) {
	if req.Name == "" {
		return nil, apperr.ErrInvalidArgument("agent_name")
	}
	if req.PublicKey == "" {
		return nil, apperr.ErrInvalidArgument("public_key")
	}

	fp, err := fingerprint.Generate(req.PublicKey)
	if err != nil {
		return nil, apperr.ErrInvalidArgument("public_key")
	}

	if existing, err := uc.agents.FindByPublicKey(ctx, req.PublicKey); err == nil && existing != nil {
		return nil, apperr.ErrDuplicateIdentity(fmt.Sprintf("Agent ID: %s", existing.ID))
	} else if err != nil && !errors.Is(err, outbound.ErrAgentNotFound) {
		return nil, apperr.ErrDatabaseError("find agent by public key", err)
	}

	agent := entity.NewAgent(uuid.NewString(), req.Name, req.PublicKey, fp)
	if err := uc.agents.Create(ctx, agent); err != nil {
		if errors.Is(err, outbound.ErrDuplicatePublicKey) {
			return nil, apperr.ErrDuplicateIdentity("")
		}
		return nil, apperr.ErrDatabaseError("create agent", err)
	}

	now := time.Now().UTC()
	meta := &entity.AgentMetadata{
		ID:                   uuid.NewString(),
		AgentID:              agent.ID,
		ModelName:            req.ModelName,
		Version:              req.Version,
		ExecutionEnvironment: req.ExecutionEnvironment,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := uc.agents.CreateMetadata(ctx, meta); err != nil {
		return nil, apperr.ErrDatabaseError("create agent metadata", err)
	}
	rep := &entity.AgentReputation{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Score:     0.0,
		RiskLevel: "low",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.agents.CreateReputation(ctx, rep); err != nil {
		return nil, apperr.ErrDatabaseError("create agent reputation", err)
	}

	// Mirror asynchronously; the caller only waits the bounded window.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := uc.mirrorIdentity(context.WithoutCancel(ctx), agent.ID); err != nil {
			uc.log.Warn(ctx, "identity mirror did not complete", map[string]interface{}{
				"agent_id": agent.ID,
				"reason":   err.Error(),
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(uc.cfg.RegisterSyncWait):
	case <-ctx.Done():
		return agent, nil
	}

	if refreshed, err := uc.agents.FindByID(ctx, agent.ID); err == nil {
		return refreshed, nil
	}
	return agent, nil
}

// Verify moves an agent to verified. Idempotent: re-verifying keeps the
// status and still appends a verification record so the audit trail stays
// continuous. Suspended agents cannot be verified.
func (uc *AgentLifecycleUseCase) Verify(ctx context.Context, agentID string) (*entity.Agent, error) {
	agent, err := uc.findAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Status == entity.AgentStatusSuspended {
		return nil, apperr.ErrPreconditionFailed("agent is suspended")
	}

	if agent.Status != entity.AgentStatusVerified {
		if err := uc.agents.UpdateStatus(ctx, agent.ID, entity.AgentStatusVerified); err != nil {
			return nil, apperr.ErrDatabaseError("update agent status", err)
		}
		agent.Status = entity.AgentStatusVerified
	}

	record := entity.NewBehaviorRecord(uuid.NewString(), agent.ID, entity.BehaviorKindVerification,
		map[string]interface{}{"verified_at": time.Now().UTC().Format(time.RFC3339)}, 0.0)
	if err := uc.behaviors.Create(ctx, record); err != nil {
		return nil, apperr.ErrDatabaseError("create verification record", err)
	}

	return agent, nil
}

// RecordAction persists a behavior record locally first, then mirrors it to
// the ledger if and only if the agent's identity is already synced. Mirror
// failures are logged and swallowed; the durable local record is the
// operation's result either way.
func (uc *AgentLifecycleUseCase) RecordAction(ctx context.Context, agentID string, req inbound.RecordActionRequest) (*entity.BehaviorRecord, error) {
	if req.ActionType == "" {
		return nil, apperr.ErrInvalidArgument("action_type")
	}
	agent, err := uc.findAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{"action_type": req.ActionType}
	for k, v := range req.ActionData {
		payload[k] = v
	}
	if req.Result != "" {
		payload["result"] = req.Result
	}

	record := entity.NewBehaviorRecord(uuid.NewString(), agent.ID, req.ActionType, payload, req.RiskScore)
	if err := uc.behaviors.Create(ctx, record); err != nil {
		return nil, apperr.ErrDatabaseError("create behavior record", err)
	}

	if agent.Synced() {
		uc.mirrorAction(ctx, agent, record, req)
	}

	return record, nil
}

// mirrorAction logs one action against the agent's ledger identity and
// attaches the returned references to the local record. Runs on a detached
// context so a caller disconnect cannot strand a half-finished mirror.
func (uc *AgentLifecycleUseCase) mirrorAction(ctx context.Context, agent *entity.Agent, record *entity.BehaviorRecord, req inbound.RecordActionRequest) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.LedgerTimeout)
	defer cancel()

	actionData := ""
	if len(req.ActionData) > 0 {
		actionData = fmt.Sprintf("%v", req.ActionData)
	}
	action, err := uc.ledger.LogAction(callCtx, *agent.LedgerIdentityID, outbound.LogActionRequest{
		ActionType: req.ActionType,
		ActionData: actionData,
		Result:     req.Result,
	})
	if err != nil {
		uc.log.Warn(ctx, "action mirror failed, local record kept", map[string]interface{}{
			"agent_id":  agent.ID,
			"record_id": record.ID,
			"reason":    err.Error(),
		})
		return
	}

	// The ledger call may have eaten the whole callCtx budget before
	// succeeding; attaching the references gets a fresh one so a slow
	// mirror cannot lose the ledger action id it just obtained.
	attachCtx, attachCancel := context.WithTimeout(context.WithoutCancel(ctx), localWriteTimeout)
	defer attachCancel()
	if err := uc.behaviors.AttachLedgerAction(attachCtx, record.ID, action.ActionID, action.TxRef, action.LoggedAt); err != nil {
		uc.log.Warn(ctx, "failed to attach ledger action to record", map[string]interface{}{
			"agent_id":  agent.ID,
			"record_id": record.ID,
			"reason":    err.Error(),
		})
		return
	}
	record.LedgerActionID = &action.ActionID
	record.LedgerTxRef = &action.TxRef
	loggedAt := action.LoggedAt
	record.LedgerLoggedAt = &loggedAt
}

// GetProfile returns the agent composed with metadata and reputation.
func (uc *AgentLifecycleUseCase) GetProfile(ctx context.Context, agentID string) (*entity.AgentProfile, error) {
	profile, err := uc.agents.FindProfile(ctx, agentID)
	if err != nil {
		if errors.Is(err, outbound.ErrAgentNotFound) {
			return nil, apperr.ErrAgentNotFound(agentID)
		}
		return nil, apperr.ErrDatabaseError("find agent profile", err)
	}
	return profile, nil
}

// RetrySync re-runs the identity mirror for an unsynced agent and returns
// the agent's refreshed state. Already-synced agents are a no-op.
func (uc *AgentLifecycleUseCase) RetrySync(ctx context.Context, agentID string) (*entity.Agent, error) {
	agent, err := uc.findAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.Synced() {
		return agent, nil
	}

	if err := uc.mirrorIdentity(ctx, agent.ID); err != nil {
		uc.log.Warn(ctx, "sync retry did not complete", map[string]interface{}{
			"agent_id": agent.ID,
			"reason":   err.Error(),
		})
	}
	return uc.findAgent(ctx, agentID)
}

// LedgerAudit returns the dual-ledger view: local sync state plus the
// on-chain identity snapshot and action history. Ledger read failures
// degrade to a populated ledger_error instead of failing the whole view.
func (uc *AgentLifecycleUseCase) LedgerAudit(ctx context.Context, agentID string) (*inbound.LedgerAuditView, error) {
	agent, err := uc.findAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	view := &inbound.LedgerAuditView{Agent: agent}
	if agent.LedgerIdentityID == nil {
		return view, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.LedgerTimeout)
	defer cancel()

	identity, err := uc.ledger.ReadIdentity(callCtx, *agent.LedgerIdentityID)
	if err != nil {
		view.LedgerErr = err.Error()
		return view, nil
	}
	view.OnChain = identity

	actions, err := uc.ledger.ReadActionHistory(callCtx, *agent.LedgerIdentityID)
	if err != nil {
		view.LedgerErr = err.Error()
		return view, nil
	}
	view.Actions = actions
	return view, nil
}

// MirrorIdentity is the reconciliation entry point used by the background
// sweep; it retries the identity mirror for one agent.
func (uc *AgentLifecycleUseCase) MirrorIdentity(ctx context.Context, agentID string) error {
	return uc.mirrorIdentity(ctx, agentID)
}

// mirrorIdentity registers the agent's identity on the ledger and claims
// the returned ledger id via compare-and-set. Safe to invoke concurrently
// and repeatedly for the same agent: the idempotency key pins the ledger
// write to this agent, and the CAS guarantees at most one ledger identity
// id ever lands on the local row.
func (uc *AgentLifecycleUseCase) mirrorIdentity(ctx context.Context, agentID string) error {
	unlock := uc.mirrorLocks.lock(agentID)
	defer unlock()

	profile, err := uc.agents.FindProfile(ctx, agentID)
	if err != nil {
		return fmt.Errorf("load agent for mirror: %w", err)
	}
	agent := profile.Agent
	if agent.LedgerIdentityID != nil {
		return nil
	}

	if uc.limiter != nil {
		allowed, err := uc.limiter.Allow(ctx, "ledger:mirror:"+agentID, uc.cfg.MirrorAttempts, uc.cfg.MirrorWindow)
		if err != nil {
			uc.log.Warn(ctx, "mirror limiter unavailable, proceeding", map[string]interface{}{
				"agent_id": agentID, "reason": err.Error(),
			})
		} else if !allowed {
			return apperr.ErrRateLimitExceeded(fmt.Sprintf("mirror attempts for agent %s", agentID))
		}
	}

	version := ""
	var capabilities []string
	if profile.Metadata != nil {
		version = profile.Metadata.Version
		if profile.Metadata.ModelName != "" {
			capabilities = append(capabilities, profile.Metadata.ModelName)
		}
		if profile.Metadata.ExecutionEnvironment != "" {
			capabilities = append(capabilities, profile.Metadata.ExecutionEnvironment)
		}
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.cfg.LedgerTimeout)
	identity, err := uc.ledger.RegisterIdentity(callCtx, outbound.RegisterIdentityRequest{
		Name:           agent.Name,
		Version:        version,
		Capabilities:   capabilities,
		IdempotencyKey: agent.ID,
	})
	cancel()
	if err != nil {
		reason := truncate(err.Error(), maxSyncErrorLen)
		// callCtx may be expired here (a timeout is the usual failure);
		// marking the outcome must not ride on it.
		markCtx, markCancel := context.WithTimeout(context.WithoutCancel(ctx), localWriteTimeout)
		defer markCancel()
		if markErr := uc.agents.MarkSyncFailed(markCtx, agent.ID, reason); markErr != nil {
			uc.log.Error(ctx, "failed to record sync failure", markErr, map[string]interface{}{
				"agent_id": agent.ID,
			})
		}
		if errors.Is(err, outbound.ErrLedgerRejected) {
			return apperr.ErrLedgerRejected(reason, err)
		}
		return apperr.ErrLedgerUnavailable(reason, err)
	}

	claimCtx, claimCancel := context.WithTimeout(context.WithoutCancel(ctx), localWriteTimeout)
	defer claimCancel()
	claimed, err := uc.agents.ClaimLedgerIdentity(claimCtx, agent.ID, identity.LedgerID, identity.TxRef, identity.RegisteredAt)
	if err != nil {
		return fmt.Errorf("claim ledger identity: %w", err)
	}
	if !claimed {
		uc.log.Warn(ctx, "ledger identity already claimed by a concurrent mirror", map[string]interface{}{
			"agent_id":  agent.ID,
			"ledger_id": identity.LedgerID,
		})
		return nil
	}

	uc.log.Info(ctx, "agent identity mirrored to ledger", map[string]interface{}{
		"agent_id":  agent.ID,
		"ledger_id": identity.LedgerID,
		"tx_ref":    identity.TxRef,
	})
	return nil
}

func (uc *AgentLifecycleUseCase) findAgent(ctx context.Context, agentID string) (*entity.Agent, error) {
	agent, err := uc.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, outbound.ErrAgentNotFound) {
			return nil, apperr.ErrAgentNotFound(agentID)
		}
		return nil, apperr.ErrDatabaseError("find agent", err)
	}
	return agent, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// keyedMutex hands out one mutex per key. Entries are reference counted
// and dropped once the last holder unlocks, so the map stays bounded by
// the number of in-flight keys rather than every key ever seen.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
