package hookstage

import (
	"errors"

	"github.com/oxxion/rtd-server/auction"
)

func (c *ChangeSet[T]) AuctionResponse() ChangeSetAuctionResponse[T] {
	return ChangeSetAuctionResponse[T]{changeSet: c}
}

type ChangeSetAuctionResponse[T any] struct {
	changeSet *ChangeSet[T]
}

func (c ChangeSetAuctionResponse[T]) BidsReceived() ChangeSetBidsReceived[T] {
	return ChangeSetBidsReceived[T]{changeSetAuctionResponse: c}
}

func (c ChangeSetAuctionResponse[T]) castPayload(p T) (AuctionResponsePayload, error) {
	if payload, ok := any(p).(AuctionResponsePayload); ok {
		if payload.AuctionEnd == nil {
			return payload, errors.New("payload contains a nil auction end")
		}
		return payload, nil
	}
	return AuctionResponsePayload{}, errors.New("failed to cast AuctionResponsePayload")
}

type ChangeSetBidsReceived[T any] struct {
	changeSetAuctionResponse ChangeSetAuctionResponse[T]
}

// Update replaces the bids received by the auction.
func (c ChangeSetBidsReceived[T]) Update(bids []*auction.BidResponse) {
	c.changeSetAuctionResponse.changeSet.AddMutation(func(p T) (T, error) {
		payload, err := c.changeSetAuctionResponse.castPayload(p)
		if err != nil {
			return p, err
		}
		payload.AuctionEnd.BidsReceived = bids
		if result, ok := any(payload).(T); ok {
			return result, nil
		}
		return p, errors.New("failed to cast AuctionResponsePayload")
	}, MutationUpdate, "bidsReceived")
}
