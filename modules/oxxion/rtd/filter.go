package rtd

import (
	"github.com/buger/jsonparser"
	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/util/jsonutil"
	"github.com/oxxion/rtd-server/util/randomutil"
	"github.com/samber/lo"
)

// samplingDraws is the size of the [0, 100] range sampling draws come from.
const samplingDraws = 101

// RejectedBid is a filtered out bid as reported back to the scoring service: the bid itself
// annotated with its ad unit code and media types and with the bidder code behind its alias.
type RejectedBid struct {
	*auction.Bid
	Code           string
	MediaTypes     auction.MediaTypes
	OriginalBidder string
}

// MarshalJSON encodes the bid as received, without its floor data, along with the annotations.
func (r RejectedBid) MarshalJSON() ([]byte, error) {
	bid := r.Bid
	if bid == nil {
		bid = &auction.Bid{}
	}
	data, err := jsonutil.Marshal(bid)
	if err != nil {
		return nil, err
	}
	data = jsonparser.Delete(data, "floorData")

	annotations := []struct {
		key   string
		value interface{}
	}{
		{"code", r.Code},
		{"mediaTypes", r.MediaTypes},
		{"originalBidder", r.OriginalBidder},
	}
	for _, annotation := range annotations {
		value, err := jsonutil.Marshal(annotation.value)
		if err != nil {
			return nil, err
		}
		if data, err = jsonparser.Set(data, value, annotation.key); err != nil {
			return nil, err
		}
	}
	return data, nil
}

type filterStats struct {
	kept     int
	rejected int
	sampled  int
	exempt   int
}

// FilterOnBidRates keeps the bids found interesting by the verdicts, rescued by sampling or
// exempted by the bidder allow-list, and drops ad units left without bids. The input ad units
// are not modified. resolveBidder maps a bidder alias to its bidder code.
func FilterOnBidRates(
	verdicts []InterestVerdict,
	adUnits []*auction.AdUnit,
	index CorrelationIndex,
	policy FilterPolicy,
	resolveBidder func(string) string,
	useSampling bool,
	rng randomutil.RandomGenerator,
) ([]*auction.AdUnit, []RejectedBid) {
	filtered, rejected, _ := filterOnBidRates(verdicts, adUnits, index, policy, resolveBidder, useSampling, rng)
	return filtered, rejected
}

func filterOnBidRates(
	verdicts []InterestVerdict,
	adUnits []*auction.AdUnit,
	index CorrelationIndex,
	policy FilterPolicy,
	resolveBidder func(string) string,
	useSampling bool,
	rng randomutil.RandomGenerator,
) ([]*auction.AdUnit, []RejectedBid, filterStats) {
	verdictsByID := lo.KeyBy(verdicts, func(verdict InterestVerdict) int {
		return verdict.ID
	})

	filtered := make([]*auction.AdUnit, 0, len(adUnits))
	rejected := make([]RejectedBid, 0)
	var stats filterStats

	for _, adUnit := range adUnits {
		if adUnit == nil {
			continue
		}

		survivors := make([]*auction.Bid, 0, len(adUnit.Bids))
		for _, bid := range adUnit.Bids {
			if bid == nil {
				continue
			}

			if policy.exempts(bid.Bidder) {
				stats.exempt++
				delete(index, bid)
				survivors = append(survivors, bid)
				continue
			}

			interesting := false
			if id, ok := index[bid]; ok {
				if verdict, found := verdictsByID[id]; found {
					interesting = isInteresting(verdict, policy)
				}
			}

			if !interesting && useSampling && sampled(policy, rng) {
				stats.sampled++
				interesting = true
			}

			if interesting {
				stats.kept++
				delete(index, bid)
				survivors = append(survivors, bid)
				continue
			}

			stats.rejected++
			rejected = append(rejected, newRejectedBid(adUnit, bid, resolveBidder))
		}

		if len(survivors) == 0 {
			continue
		}
		kept := *adUnit
		kept.Bids = survivors
		filtered = append(filtered, &kept)
	}

	return filtered, rejected, stats
}

func isInteresting(verdict InterestVerdict, policy FilterPolicy) bool {
	if policy.Threshold != nil {
		return verdict.Rate.Exceeds(*policy.Threshold)
	}
	return verdict.Suggestion
}

func sampled(policy FilterPolicy, rng randomutil.RandomGenerator) bool {
	if policy.SamplingRate == nil || rng == nil {
		return false
	}
	return float64(rng.GenerateIntN(samplingDraws)) < *policy.SamplingRate
}

func newRejectedBid(adUnit *auction.AdUnit, bid *auction.Bid, resolveBidder func(string) string) RejectedBid {
	originalBidder := bid.Bidder
	if resolveBidder != nil {
		originalBidder = resolveBidder(bid.Bidder)
	}

	return RejectedBid{
		Bid:            bid,
		Code:           adUnit.Code,
		MediaTypes:     adUnit.MediaTypes,
		OriginalBidder: originalBidder,
	}
}
