package rtd

import (
	"sort"

	"github.com/oxxion/rtd-server/auction"
)

// BidPrice locates a received bid by its position in the bids received list.
type BidPrice struct {
	Index int
	CPM   float64
}

// TransactionSummary holds the two best prices of a tracked transaction.
type TransactionSummary struct {
	TransactionID string
	// Bids is keyed by ad id.
	Bids         map[string]BidPrice
	MaxCPM       float64
	SecondMaxCPM float64
}

// TrackSecondPrices computes the highest and second highest CPM of every transaction whose
// ad unit declares one of contexts as video context. Summaries follow the ad-unit order.
func TrackSecondPrices(adUnits []*auction.AdUnit, bidsReceived []*auction.BidResponse, contexts map[string]struct{}) []*TransactionSummary {
	summaries := make([]*TransactionSummary, 0)
	byTransaction := make(map[string]*TransactionSummary)

	for _, adUnit := range adUnits {
		videoContext, ok := adUnit.VideoContext()
		if !ok {
			continue
		}
		if _, tracked := contexts[videoContext]; !tracked {
			continue
		}
		if _, seen := byTransaction[adUnit.TransactionID]; seen {
			continue
		}

		summary := &TransactionSummary{
			TransactionID: adUnit.TransactionID,
			Bids:          make(map[string]BidPrice),
		}
		byTransaction[adUnit.TransactionID] = summary
		summaries = append(summaries, summary)
	}

	for i, bid := range bidsReceived {
		if bid == nil {
			continue
		}
		summary, ok := byTransaction[bid.TransactionID]
		if !ok {
			continue
		}

		summary.Bids[bid.AdID] = BidPrice{Index: i, CPM: bid.CPM}
		if bid.CPM > summary.MaxCPM {
			summary.SecondMaxCPM = summary.MaxCPM
			summary.MaxCPM = bid.CPM
		} else if bid.CPM > summary.SecondMaxCPM {
			summary.SecondMaxCPM = bid.CPM
		}
	}

	return summaries
}

// indexes returns the positions of the summarized bids in ascending order.
func (s *TransactionSummary) indexes() []int {
	indexes := make([]int, 0, len(s.Bids))
	for _, price := range s.Bids {
		indexes = append(indexes, price.Index)
	}
	sort.Ints(indexes)
	return indexes
}
