package hookstage

import (
	"errors"

	"github.com/oxxion/rtd-server/auction"
)

func (c *ChangeSet[T]) ProcessedAuctionRequest() ChangeSetProcessedAuctionRequest[T] {
	return ChangeSetProcessedAuctionRequest[T]{changeSet: c}
}

type ChangeSetProcessedAuctionRequest[T any] struct {
	changeSet *ChangeSet[T]
}

func (c ChangeSetProcessedAuctionRequest[T]) AdUnits() ChangeSetAdUnits[T] {
	return ChangeSetAdUnits[T]{changeSetProcessedAuctionRequest: c}
}

func (c ChangeSetProcessedAuctionRequest[T]) castPayload(p T) (ProcessedAuctionRequestPayload, error) {
	if payload, ok := any(p).(ProcessedAuctionRequestPayload); ok {
		if payload.Request == nil {
			return payload, errors.New("payload contains a nil auction request")
		}
		return payload, nil
	}
	return ProcessedAuctionRequestPayload{}, errors.New("failed to cast ProcessedAuctionRequestPayload")
}

type ChangeSetAdUnits[T any] struct {
	changeSetProcessedAuctionRequest ChangeSetProcessedAuctionRequest[T]
}

// Update replaces the ad units of the auction request.
func (c ChangeSetAdUnits[T]) Update(adUnits []*auction.AdUnit) {
	c.changeSetProcessedAuctionRequest.changeSet.AddMutation(func(p T) (T, error) {
		payload, err := c.changeSetProcessedAuctionRequest.castPayload(p)
		if err != nil {
			return p, err
		}
		payload.Request.AdUnits = adUnits
		if result, ok := any(payload).(T); ok {
			return result, nil
		}
		return p, errors.New("failed to cast ProcessedAuctionRequestPayload")
	}, MutationUpdate, "adUnits")
}
