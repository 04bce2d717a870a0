package hookexecution

import (
	"context"
	"sync"

	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/hooks"
	"github.com/oxxion/rtd-server/hooks/hookstage"
	"github.com/oxxion/rtd-server/metrics"
)

const (
	EndpointRTDRequest    = "/rtd/v1/request"
	EndpointRTDAuctionEnd = "/rtd/v1/auction_end"
)

// StageExecutor runs the hooks of every stage of the auction lifecycle.
// A stage returns a *RejectError when one of its hooks rejected it.
type StageExecutor interface {
	ExecuteProcessedAuctionStage(request *auction.Request) error
	ExecuteAuctionResponseStage(auctionEnd *auction.AuctionEnd) error
}

type HookStageExecutor interface {
	StageExecutor
	SetAccount(account *config.Account)
	GetOutcomes() []StageOutcome
}

type hookExecutor struct {
	account        *config.Account
	accountID      string
	endpoint       string
	planBuilder    hooks.ExecutionPlanBuilder
	stageOutcomes  []StageOutcome
	moduleContexts *moduleContexts
	metricEngine   metrics.MetricsEngine
	// Mutex needed for stage outcomes which may be collected concurrently
	sync.Mutex
}

func NewHookExecutor(builder hooks.ExecutionPlanBuilder, endpoint string, me metrics.MetricsEngine) *hookExecutor {
	if me == nil {
		me = &metrics.NilMetricsEngine{}
	}
	return &hookExecutor{
		endpoint:       endpoint,
		planBuilder:    builder,
		stageOutcomes:  []StageOutcome{},
		moduleContexts: &moduleContexts{ctxs: make(map[string]*hookstage.ModuleContext)},
		metricEngine:   me,
	}
}

// SetAccount sets the account used to resolve account-level plans and module configs.
func (e *hookExecutor) SetAccount(account *config.Account) {
	if account == nil {
		return
	}

	e.account = account
	e.accountID = account.ID
}

func (e *hookExecutor) GetOutcomes() []StageOutcome {
	e.Lock()
	defer e.Unlock()
	return e.stageOutcomes
}

func (e *hookExecutor) ExecuteProcessedAuctionStage(request *auction.Request) error {
	plan := e.planBuilder.PlanForProcessedAuctionStage(e.endpoint, e.account)
	if len(plan) == 0 {
		return nil
	}

	if e.accountID == "" && request != nil {
		e.accountID = request.AccountID
	}

	handler := func(
		ctx context.Context,
		moduleCtx hookstage.ModuleInvocationContext,
		hook hookstage.ProcessedAuctionRequest,
		payload hookstage.ProcessedAuctionRequestPayload,
	) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
		return hook.HandleProcessedAuctionHook(ctx, moduleCtx, payload)
	}

	stageName := hooks.StageProcessedAuctionRequest
	executionCtx := e.newContext(stageName)
	payload := hookstage.ProcessedAuctionRequestPayload{Request: request}

	outcome, _, reject := executeStage(executionCtx, plan, payload, handler, e.metricEngine)
	outcome.Entity = EntityAuctionRequest
	outcome.Stage = stageName

	e.pushStageOutcome(outcome)

	if reject != nil {
		return reject
	}
	return nil
}

func (e *hookExecutor) ExecuteAuctionResponseStage(auctionEnd *auction.AuctionEnd) error {
	plan := e.planBuilder.PlanForAuctionResponseStage(e.endpoint, e.account)
	if len(plan) == 0 {
		return nil
	}

	if e.accountID == "" && auctionEnd != nil {
		e.accountID = auctionEnd.AccountID
	}

	handler := func(
		ctx context.Context,
		moduleCtx hookstage.ModuleInvocationContext,
		hook hookstage.AuctionResponse,
		payload hookstage.AuctionResponsePayload,
	) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
		return hook.HandleAuctionResponseHook(ctx, moduleCtx, payload)
	}

	stageName := hooks.StageAuctionResponse
	executionCtx := e.newContext(stageName)
	payload := hookstage.AuctionResponsePayload{AuctionEnd: auctionEnd}

	outcome, _, reject := executeStage(executionCtx, plan, payload, handler, e.metricEngine)
	outcome.Entity = EntityAuctionResponse
	outcome.Stage = stageName

	e.pushStageOutcome(outcome)

	if reject != nil {
		return reject
	}
	return nil
}

func (e *hookExecutor) newContext(stage string) executionContext {
	return executionContext{
		account:        e.account,
		accountID:      e.accountID,
		endpoint:       e.endpoint,
		moduleContexts: e.moduleContexts,
		stage:          stage,
	}
}

func (e *hookExecutor) pushStageOutcome(outcome StageOutcome) {
	e.Lock()
	defer e.Unlock()
	e.stageOutcomes = append(e.stageOutcomes, outcome)
}

// EmptyHookExecutor is used when hooks are disabled.
type EmptyHookExecutor struct{}

func (executor EmptyHookExecutor) SetAccount(_ *config.Account) {}

func (executor EmptyHookExecutor) GetOutcomes() []StageOutcome {
	return []StageOutcome{}
}

func (executor EmptyHookExecutor) ExecuteProcessedAuctionStage(_ *auction.Request) error {
	return nil
}

func (executor EmptyHookExecutor) ExecuteAuctionResponseStage(_ *auction.AuctionEnd) error {
	return nil
}
