package hookexecution

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/hooks"
	"github.com/oxxion/rtd-server/hooks/hookstage"
	"github.com/oxxion/rtd-server/metrics"
)

type hookResponse[T any] struct {
	Err           error
	ExecutionTime time.Duration
	HookID        HookID
	Result        hookstage.HookResult[T]
	// sequence is the position of the hook within its group
	sequence int
}

type hookHandler[H any, P any] func(
	context.Context,
	hookstage.ModuleInvocationContext,
	H,
	P,
) (hookstage.HookResult[P], error)

// executionContext holds the data shared by every hook of a stage.
type executionContext struct {
	endpoint       string
	stage          string
	accountID      string
	account        *config.Account
	moduleContexts *moduleContexts
}

func (ctx executionContext) getModuleInvocationContext(hookID HookID) hookstage.ModuleInvocationContext {
	invocationCtx := hookstage.ModuleInvocationContext{
		AccountID:     ctx.accountID,
		Endpoint:      ctx.endpoint,
		ModuleContext: ctx.moduleContexts.get(hookID.ModuleCode),
		HookImplCode:  hookID.HookImplCode,
	}

	if ctx.account != nil {
		cfg, err := ctx.account.Hooks.Modules.ModuleConfig(hookID.ModuleCode)
		if err != nil {
			glog.Warningf("Failed to get account config for %s module: %s", hookID.ModuleCode, err)
		}
		invocationCtx.AccountConfig = cfg
	}

	return invocationCtx
}

func executeStage[H any, P any](
	executionCtx executionContext,
	plan hooks.Plan[H],
	payload P,
	hookHandler hookHandler[H, P],
	metricEngine metrics.MetricsEngine,
) (StageOutcome, P, *RejectError) {
	stageOutcome := StageOutcome{Stage: executionCtx.stage}
	stageOutcome.Groups = make([]GroupOutcome, 0, len(plan))

	for _, group := range plan {
		groupOutcome, newPayload, reject := executeGroup(executionCtx, group, payload, hookHandler, metricEngine)
		stageOutcome.ExecutionTimeMillis += groupOutcome.ExecutionTimeMillis
		stageOutcome.Groups = append(stageOutcome.Groups, groupOutcome)
		if reject != nil {
			return stageOutcome, payload, reject
		}

		payload = newPayload
	}

	return stageOutcome, payload, nil
}

func executeGroup[H any, P any](
	executionCtx executionContext,
	group hooks.Group[H],
	payload P,
	hookHandler hookHandler[H, P],
	metricEngine metrics.MetricsEngine,
) (GroupOutcome, P, *RejectError) {
	var wg sync.WaitGroup
	rejected := make(chan struct{})
	resp := make(chan hookResponse[P])

	for i, hook := range group.Hooks {
		hookID := HookID{ModuleCode: hook.Module, HookImplCode: hook.Code}
		mCtx := executionCtx.getModuleInvocationContext(hookID)
		wg.Add(1)
		go func(hw hooks.HookWrapper[H], sequence int, moduleCtx hookstage.ModuleInvocationContext) {
			defer wg.Done()
			executeHook(moduleCtx, hw, sequence, payload, hookHandler, group.Timeout, resp, rejected)
		}(hook, i, mCtx)
	}

	go func() {
		wg.Wait()
		close(resp)
	}()

	hookResponses := collectHookResponses(resp, rejected)

	return handleHookResponses(executionCtx, hookResponses, payload, metricEngine)
}

func executeHook[H any, P any](
	moduleCtx hookstage.ModuleInvocationContext,
	hw hooks.HookWrapper[H],
	sequence int,
	payload P,
	hookHandler hookHandler[H, P],
	timeout time.Duration,
	resp chan<- hookResponse[P],
	rejected <-chan struct{},
) {
	hookRespCh := make(chan hookResponse[P], 1)
	startTime := time.Now()
	hookId := HookID{ModuleCode: hw.Module, HookImplCode: hw.Code}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				glog.Errorf("Recovered panic in hook %s (%s): %v, Stack trace is: %v", hw.Module, hw.Code, r, string(debug.Stack()))
				hookRespCh <- hookResponse[P]{
					Err:           fmt.Errorf("hook panicked: %v", r),
					ExecutionTime: time.Since(startTime),
					HookID:        hookId,
					sequence:      sequence,
				}
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := hookHandler(ctx, moduleCtx, hw.Hook, payload)
		hookRespCh <- hookResponse[P]{
			Result:        result,
			Err:           err,
			ExecutionTime: time.Since(startTime),
			HookID:        hookId,
			sequence:      sequence,
		}
	}()

	var res hookResponse[P]
	select {
	case res = <-hookRespCh:
	case <-time.After(timeout):
		res = hookResponse[P]{
			Err:           TimeoutError{},
			ExecutionTime: time.Since(startTime),
			HookID:        hookId,
			sequence:      sequence,
		}
	case <-rejected:
		return
	}

	select {
	case resp <- res:
	case <-rejected:
	}
}

// collectHookResponses reads hook responses until every hook of the group has answered
// or one of them rejects the stage. The responses are returned in hook sequence order.
func collectHookResponses[P any](
	resp <-chan hookResponse[P],
	rejected chan<- struct{},
) []hookResponse[P] {
	hookResponses := make([]hookResponse[P], 0)
	for r := range resp {
		hookResponses = append(hookResponses, r)
		if r.Err == nil && r.Result.Reject {
			close(rejected)
			break
		}
	}

	sort.SliceStable(hookResponses, func(i, j int) bool {
		return hookResponses[i].sequence < hookResponses[j].sequence
	})

	return hookResponses
}

func handleHookResponses[P any](
	executionCtx executionContext,
	hookResponses []hookResponse[P],
	payload P,
	metricEngine metrics.MetricsEngine,
) (GroupOutcome, P, *RejectError) {
	groupOutcome := GroupOutcome{}
	groupOutcome.InvocationResults = make([]HookOutcome, 0, len(hookResponses))

	var reject *RejectError
	for _, r := range hookResponses {
		var outcome HookOutcome
		var rejectErr *RejectError
		outcome, payload, rejectErr = handleHookResponse(executionCtx, payload, r, metricEngine)
		groupOutcome.InvocationResults = append(groupOutcome.InvocationResults, outcome)
		if outcome.ExecutionTimeMillis > groupOutcome.ExecutionTimeMillis {
			groupOutcome.ExecutionTimeMillis = outcome.ExecutionTimeMillis
		}
		if rejectErr != nil && reject == nil {
			reject = rejectErr
		}
	}

	return groupOutcome, payload, reject
}

func handleHookResponse[P any](
	ctx executionContext,
	payload P,
	hr hookResponse[P],
	metricEngine metrics.MetricsEngine,
) (HookOutcome, P, *RejectError) {
	labels := metrics.ModuleLabels{Module: hr.HookID.ModuleCode, Stage: ctx.stage, AccountID: ctx.accountID}
	metricEngine.RecordModuleCalled(labels, hr.ExecutionTime)

	hookOutcome := HookOutcome{
		Status:        StatusSuccess,
		HookID:        hr.HookID,
		Message:       hr.Result.Message,
		Errors:        hr.Result.Errors,
		Warnings:      hr.Result.Warnings,
		DebugMessages: hr.Result.DebugMessages,
		AnalyticsTags: hr.Result.AnalyticsTags,
		ExecutionTime: ExecutionTime{ExecutionTimeMillis: hr.ExecutionTime},
	}

	if hr.Err != nil {
		handleHookError(hr, &hookOutcome, metricEngine, labels)
		return hookOutcome, payload, nil
	}

	ctx.moduleContexts.put(hr.HookID.ModuleCode, hr.Result.ModuleContext)

	if hr.Result.Reject {
		hookOutcome.Action = ActionReject
		metricEngine.RecordModuleSuccessRejected(labels)
		return hookOutcome, payload, &RejectError{Hook: hr.HookID, Stage: ctx.stage, Reason: hr.Result.Message}
	}

	payload = handleHookMutations(payload, hr, &hookOutcome, metricEngine, labels)

	return hookOutcome, payload, nil
}

// handleHookError sets an appropriate status to HookOutcome depending on the type of hook execution error.
func handleHookError[P any](
	hr hookResponse[P],
	hookOutcome *HookOutcome,
	metricEngine metrics.MetricsEngine,
	labels metrics.ModuleLabels,
) {
	hookOutcome.Errors = append(hookOutcome.Errors, hr.Err.Error())
	hookOutcome.Action = ActionNone

	switch hr.Err.(type) {
	case TimeoutError:
		metricEngine.RecordModuleTimeout(labels)
		hookOutcome.Status = StatusTimeout
	case FailureError:
		metricEngine.RecordModuleFailed(labels)
		hookOutcome.Status = StatusFailure
	default:
		metricEngine.RecordModuleExecutionError(labels)
		hookOutcome.Status = StatusExecutionFailure
	}
}

// handleHookMutations applies mutations returned by hook to provided payload.
func handleHookMutations[P any](
	payload P,
	hr hookResponse[P],
	hookOutcome *HookOutcome,
	metricEngine metrics.MetricsEngine,
	labels metrics.ModuleLabels,
) P {
	if len(hr.Result.ChangeSet.Mutations()) == 0 {
		metricEngine.RecordModuleSuccessNooped(labels)
		hookOutcome.Action = ActionNone
		return payload
	}

	hookOutcome.Action = ActionUpdate
	successfulMutations := 0
	for _, mut := range hr.Result.ChangeSet.Mutations() {
		p, err := mut.Apply(payload)
		if err != nil {
			hookOutcome.Warnings = append(
				hookOutcome.Warnings,
				fmt.Sprintf("failed to apply hook mutation: %s", err),
			)
			continue
		}

		payload = p
		hookOutcome.DebugMessages = append(
			hookOutcome.DebugMessages,
			fmt.Sprintf(
				"Hook mutation successfully applied, affected key: %s, mutation type: %s",
				mut.Key(),
				mut.Type(),
			),
		)
		successfulMutations++
	}

	// if at least one mutation from a given module was successfully applied
	// we consider that the module was processed successfully
	if successfulMutations > 0 {
		metricEngine.RecordModuleSuccessUpdated(labels)
	} else {
		hookOutcome.Status = StatusExecutionFailure
		metricEngine.RecordModuleExecutionError(labels)
	}

	return payload
}

// moduleContexts preserves data the module wants to pass to itself from earlier stages to later stages.
type moduleContexts struct {
	sync.RWMutex
	ctxs map[string]*hookstage.ModuleContext // format: {"module_name": *hookstage.ModuleContext}
}

func (mc *moduleContexts) put(moduleName string, mCtx *hookstage.ModuleContext) {
	if mCtx == nil {
		return
	}
	mc.get(moduleName).Merge(mCtx)
}

func (mc *moduleContexts) get(moduleName string) *hookstage.ModuleContext {
	mc.RLock()
	mCtx, ok := mc.ctxs[moduleName]
	mc.RUnlock()
	if ok {
		return mCtx
	}

	mc.Lock()
	defer mc.Unlock()
	if mCtx, ok := mc.ctxs[moduleName]; ok {
		return mCtx
	}
	if mc.ctxs == nil {
		mc.ctxs = make(map[string]*hookstage.ModuleContext)
	}
	mCtx = hookstage.NewModuleContext()
	mc.ctxs[moduleName] = mCtx
	return mCtx
}
