// Package auction holds the client-side auction objects exchanged with the hook stages:
// ad units with their bid entries at request time and the received bid responses at
// auction end. Field names follow the JSON produced by header-bidding wrappers.
//
// Objects decoded from JSON remember the object they came from and encode back to it: members
// without a field here and unchanged members are written as received.
package auction

import (
	"encoding/json"
)

// MediaTypeVideo is the BidResponse.MediaType value of video bid responses.
const MediaTypeVideo = "video"

// MediaTypes describes the formats an ad unit accepts.
type MediaTypes struct {
	Banner *Banner         `json:"banner,omitempty"`
	Video  *Video          `json:"video,omitempty"`
	Native json.RawMessage `json:"native,omitempty"`
	Audio  json.RawMessage `json:"audio,omitempty"`

	raw json.RawMessage
}

// Banner holds the accepted banner sizes.
type Banner struct {
	Sizes [][]int `json:"sizes,omitempty"`

	raw json.RawMessage
}

// Video holds the video player description of an ad unit.
type Video struct {
	Context        string   `json:"context,omitempty"`
	PlayerSize     [][]int  `json:"playerSize,omitempty"`
	Mimes          []string `json:"mimes,omitempty"`
	Protocols      []int    `json:"protocols,omitempty"`
	Playbackmethod []int    `json:"playbackmethod,omitempty"`
	MinDuration    int      `json:"minduration,omitempty"`
	MaxDuration    int      `json:"maxduration,omitempty"`
	Skip           *int     `json:"skip,omitempty"`
	Plcmt          int      `json:"plcmt,omitempty"`

	raw json.RawMessage
}

// Bid is a single bidder entry of an ad unit.
type Bid struct {
	Bidder    string          `json:"bidder"`
	Params    json.RawMessage `json:"params,omitempty"`
	BidID     string          `json:"bidId,omitempty"`
	FloorData json.RawMessage `json:"floorData,omitempty"`

	raw json.RawMessage
}

// AdUnit is a slot on the page along with the bidders competing for it.
type AdUnit struct {
	Code          string     `json:"code"`
	TransactionID string     `json:"transactionId,omitempty"`
	MediaTypes    MediaTypes `json:"mediaTypes"`
	Bids          []*Bid     `json:"bids"`

	raw json.RawMessage
}

// VideoContext returns the ad unit's video context, if it declares one.
func (a *AdUnit) VideoContext() (string, bool) {
	if a == nil || a.MediaTypes.Video == nil || a.MediaTypes.Video.Context == "" {
		return "", false
	}
	return a.MediaTypes.Video.Context, true
}

// Request is the request-time view of an auction.
type Request struct {
	AuctionID string    `json:"auctionId"`
	AccountID string    `json:"accountId,omitempty"`
	AdUnits   []*AdUnit `json:"adUnits"`
	// Aliases maps a bidder alias to the bidder code it stands for.
	Aliases     map[string]string `json:"aliases,omitempty"`
	GDPRConsent *string           `json:"gdprConsent"`

	raw json.RawMessage
}

// ResolveBidder returns the bidder code behind an alias, or the name itself when it is not aliased.
func (r *Request) ResolveBidder(bidder string) string {
	if r != nil {
		if original, ok := r.Aliases[bidder]; ok && original != "" {
			return original
		}
	}
	return bidder
}

// BidResponse is a bid received during the auction.
type BidResponse struct {
	AdID             string          `json:"adId"`
	AdUnitCode       string          `json:"adUnitCode"`
	AuctionID        string          `json:"auctionId,omitempty"`
	Bidder           string          `json:"bidder,omitempty"`
	BidderCode       string          `json:"bidderCode,omitempty"`
	BidID            string          `json:"bidId,omitempty"`
	RequestID        string          `json:"requestId,omitempty"`
	CPM              float64         `json:"cpm"`
	CreativeID       string          `json:"creativeId,omitempty"`
	Currency         string          `json:"currency,omitempty"`
	Width            int             `json:"width,omitempty"`
	Height           int             `json:"height,omitempty"`
	MediaType        string          `json:"mediaType,omitempty"`
	NetRevenue       bool            `json:"netRevenue"`
	OriginalCPM      float64         `json:"originalCpm,omitempty"`
	OriginalCurrency string          `json:"originalCurrency,omitempty"`
	Size             string          `json:"size,omitempty"`
	Source           string          `json:"source,omitempty"`
	Status           string          `json:"status,omitempty"`
	TimeToRespond    int             `json:"timeToRespond,omitempty"`
	TransactionID    string          `json:"transactionId,omitempty"`
	TTL              int             `json:"ttl,omitempty"`
	Sizes            json.RawMessage `json:"sizes,omitempty"`
	MediaTypes       *MediaTypes     `json:"mediaTypes,omitempty"`
	Src              string          `json:"src,omitempty"`
	UserID           json.RawMessage `json:"userId,omitempty"`
	LabelAny         json.RawMessage `json:"labelAny,omitempty"`
	VastURL          string          `json:"vastUrl,omitempty"`
	VastImpURL       string          `json:"vastImpUrl,omitempty"`
	VastXML          *string         `json:"vastXml,omitempty"`

	raw json.RawMessage
}

// IsVideo reports whether the response carries a video creative.
func (b *BidResponse) IsVideo() bool {
	return b != nil && b.MediaType == MediaTypeVideo
}

// AuctionEnd is the auction-end view of an auction.
type AuctionEnd struct {
	AuctionID    string         `json:"auctionId"`
	AccountID    string         `json:"accountId,omitempty"`
	AdUnits      []*AdUnit      `json:"adUnits"`
	BidsReceived []*BidResponse `json:"bidsReceived"`

	raw json.RawMessage
}
