package hookstage

import (
	"context"

	"github.com/oxxion/rtd-server/auction"
)

// AuctionResponse hooks are invoked once the auction has ended
// and all bid responses have been received.
//
// Rejection results in an empty list of received bids.
type AuctionResponse interface {
	HandleAuctionResponseHook(
		context.Context,
		ModuleInvocationContext,
		AuctionResponsePayload,
	) (HookResult[AuctionResponsePayload], error)
}

// AuctionResponsePayload consists of the auction.AuctionEnd object.
// Hooks are allowed to modify the received bids using mutations.
type AuctionResponsePayload struct {
	AuctionEnd *auction.AuctionEnd
}
