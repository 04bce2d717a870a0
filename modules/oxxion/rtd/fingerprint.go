package rtd

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"

	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/util/jsonutil"
)

// BidRequestRecord describes one ad-unit bid to the scoring service.
type BidRequestRecord struct {
	ID         int                `json:"id"`
	AdUnit     string             `json:"adUnit"`
	Bidder     string             `json:"bidder"`
	MediaTypes auction.MediaTypes `json:"mediaTypes"`
	Params     string             `json:"params"`
}

// CorrelationIndex maps the bids of one auction to the record ids they were reported under.
type CorrelationIndex map[*auction.Bid]int

// BuildRequests numbers every bid from 0 in ad-unit then bid order and fingerprints its params.
func BuildRequests(adUnits []*auction.AdUnit) ([]BidRequestRecord, CorrelationIndex) {
	records := make([]BidRequestRecord, 0, countBids(adUnits))
	index := make(CorrelationIndex, cap(records))

	id := 0
	for _, adUnit := range adUnits {
		if adUnit == nil {
			continue
		}
		for _, bid := range adUnit.Bids {
			if bid == nil {
				continue
			}
			records = append(records, BidRequestRecord{
				ID:         id,
				AdUnit:     adUnit.Code,
				Bidder:     bid.Bidder,
				MediaTypes: adUnit.MediaTypes,
				Params:     fingerprintParams(bid.Params),
			})
			index[bid] = id
			id++
		}
	}

	return records, index
}

// fingerprintParams returns the hex MD5 digest of the canonical form of params.
// Params that cannot be canonicalized are hashed as received.
func fingerprintParams(params []byte) string {
	canonical, err := jsonutil.Canonicalize(params)
	if err != nil {
		canonical = bytes.TrimSpace(params)
	}
	digest := md5.Sum(canonical)
	return hex.EncodeToString(digest[:])
}

func countBids(adUnits []*auction.AdUnit) int {
	count := 0
	for _, adUnit := range adUnits {
		if adUnit != nil {
			count += len(adUnit.Bids)
		}
	}
	return count
}
