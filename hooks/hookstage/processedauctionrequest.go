package hookstage

import (
	"context"

	"github.com/oxxion/rtd-server/auction"
)

// ProcessedAuctionRequest hooks are invoked after the auction request is parsed
// and before it is sent out to the bidders.
//
// At this stage, account config is available,
// so the account-level module config is passed to hooks.
//
// Rejection results in an auction with no ad units.
type ProcessedAuctionRequest interface {
	HandleProcessedAuctionHook(
		context.Context,
		ModuleInvocationContext,
		ProcessedAuctionRequestPayload,
	) (HookResult[ProcessedAuctionRequestPayload], error)
}

// ProcessedAuctionRequestPayload consists of the auction.Request object.
// Hooks are allowed to modify the auction.Request using mutations.
type ProcessedAuctionRequestPayload struct {
	Request *auction.Request
}
