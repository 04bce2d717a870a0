package hookexecution

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/hooks"
	"github.com/oxxion/rtd-server/hooks/hookanalytics"
	"github.com/oxxion/rtd-server/hooks/hookstage"
)

type mockPlanBuilder struct {
	processedAuctionPlan hooks.Plan[hookstage.ProcessedAuctionRequest]
	auctionResponsePlan  hooks.Plan[hookstage.AuctionResponse]
}

func (b mockPlanBuilder) PlanForProcessedAuctionStage(_ string, _ *config.Account) hooks.Plan[hookstage.ProcessedAuctionRequest] {
	return b.processedAuctionPlan
}

func (b mockPlanBuilder) PlanForAuctionResponseStage(_ string, _ *config.Account) hooks.Plan[hookstage.AuctionResponse] {
	return b.auctionResponsePlan
}

// mockKeepFirstAdUnitHook keeps only the first ad unit of the request.
type mockKeepFirstAdUnitHook struct{}

func (h mockKeepFirstAdUnitHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, payload hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	result := hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{
		AnalyticsTags: hookanalytics.Analytics{Activities: []hookanalytics.Activity{{Name: "keep-first", Status: hookanalytics.ActivityStatusSuccess}}},
	}
	if len(payload.Request.AdUnits) > 1 {
		result.ChangeSet.ProcessedAuctionRequest().AdUnits().Update(payload.Request.AdUnits[:1])
	}
	return result, nil
}

// mockAnnotateBidsHook sets an impression url on copies of every received bid.
type mockAnnotateBidsHook struct{}

func (h mockAnnotateBidsHook) HandleAuctionResponseHook(_ context.Context, _ hookstage.ModuleInvocationContext, payload hookstage.AuctionResponsePayload) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
	bids := make([]*auction.BidResponse, 0, len(payload.AuctionEnd.BidsReceived))
	for _, bid := range payload.AuctionEnd.BidsReceived {
		annotated := *bid
		annotated.VastImpURL = "https://track.example/imp?adId=" + bid.AdID
		bids = append(bids, &annotated)
	}

	result := hookstage.HookResult[hookstage.AuctionResponsePayload]{}
	result.ChangeSet.AuctionResponse().BidsReceived().Update(bids)
	return result, nil
}

type mockRejectHook struct{}

func (h mockRejectHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	return hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{Reject: true, Message: "blocked"}, nil
}

func (h mockRejectHook) HandleAuctionResponseHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.AuctionResponsePayload) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
	return hookstage.HookResult[hookstage.AuctionResponsePayload]{Reject: true}, nil
}

type mockTimeoutHook struct{}

func (h mockTimeoutHook) HandleProcessedAuctionHook(ctx context.Context, _ hookstage.ModuleInvocationContext, payload hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	select {
	case <-ctx.Done():
	case <-time.After(50 * time.Millisecond):
	}

	result := hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{}
	result.ChangeSet.ProcessedAuctionRequest().AdUnits().Update(nil)
	return result, nil
}

type mockFailureHook struct{}

func (h mockFailureHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	return hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{}, NewFailure("scoring service unavailable")
}

type mockErrorHook struct{}

func (h mockErrorHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	return hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{}, errors.New("unexpected error")
}

type mockPanicHook struct{}

func (h mockPanicHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	panic("hook is broken")
}

type mockFailedMutationHook struct{}

func (h mockFailedMutationHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	result := hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{}
	result.ChangeSet.AddMutation(func(p hookstage.ProcessedAuctionRequestPayload) (hookstage.ProcessedAuctionRequestPayload, error) {
		return p, errors.New("key not found")
	}, hookstage.MutationDelete, "adUnits", "video1")
	return result, nil
}

// mockModuleContextHook stores the number of ad units at request time
// and reports it back at auction end.
type mockModuleContextHook struct{}

func (h mockModuleContextHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, payload hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	moduleContext := hookstage.NewModuleContext()
	moduleContext.Set("ad-units", len(payload.Request.AdUnits))
	return hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{ModuleContext: moduleContext}, nil
}

func (h mockModuleContextHook) HandleAuctionResponseHook(_ context.Context, miCtx hookstage.ModuleInvocationContext, _ hookstage.AuctionResponsePayload) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
	result := hookstage.HookResult[hookstage.AuctionResponsePayload]{}
	if value, ok := miCtx.ModuleContext.Get("ad-units"); ok {
		result.DebugMessages = append(result.DebugMessages, "ad units at request time: "+strconv.Itoa(value.(int)))
	}
	return result, nil
}

// mockAccountConfigHook echoes the account config it was invoked with.
type mockAccountConfigHook struct{}

func (h mockAccountConfigHook) HandleProcessedAuctionHook(_ context.Context, miCtx hookstage.ModuleInvocationContext, _ hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	return hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{Message: miCtx.AccountID + ":" + string(miCtx.AccountConfig)}, nil
}
