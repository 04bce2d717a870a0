package rtd

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/buger/jsonparser"
	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/errortypes"
	"github.com/oxxion/rtd-server/util/jsonutil"
)

const unknownContext = "unknown"

// trackedFields lists the bid response fields copied into the impression URL.
var trackedFields = []string{
	"adUnitCode", "auctionId", "bidder", "bidderCode", "bidId", "cpm", "creativeId", "currency",
	"width", "height", "mediaType", "netRevenue", "originalCpm", "originalCurrency", "requestId",
	"size", "source", "status", "timeToRespond", "transactionId", "ttl", "sizes", "mediaTypes",
	"src", "userId", "labelAny", "adId",
}

// vastTrackingPaths are the VAST nodes receiving the impression tracker.
var vastTrackingPaths = []string{"/VAST/Ad/Wrapper", "/VAST/Ad/InLine"}

// TrackingTargets tells which parts of a bid response received the impression tracker.
type TrackingTargets struct {
	VastURL bool
	VastXML bool
}

func oxxionHost(domain string) string {
	return "https://" + domain + ".oxxion.io"
}

// ImpressionURL builds the impression tracking URL of a bid response. It returns false when the
// video context registered for the bid's ad unit is not tracked.
func ImpressionURL(ctx context.Context, policy FilterPolicy, registry ContextRegistry, bid *auction.BidResponse, secondMaxCPM float64) (string, bool) {
	if bid == nil {
		return "", false
	}

	videoContext := unknownContext
	if registry != nil {
		if registered, ok := registry.Lookup(ctx, bid.AdUnitCode); ok {
			videoContext = registered
		}
	}
	if !policy.HasContext(videoContext) {
		return "", false
	}

	data, err := jsonutil.Marshal(bid)
	if err != nil {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(oxxionHost(policy.Domain))
	sb.WriteString("/analytics/vast_imp?")
	for _, field := range trackedFields {
		value, ok := scalarField(data, field)
		if !ok {
			continue
		}
		sb.WriteString(field)
		sb.WriteString("=")
		sb.WriteString(url.QueryEscape(value))
		sb.WriteString("&")
	}
	sb.WriteString("cpmIncrement=")
	sb.WriteString(formatCPMIncrement(bid.CPM - secondMaxCPM))
	sb.WriteString("&context=")
	sb.WriteString(url.QueryEscape(videoContext))

	return sb.String(), true
}

// scalarField reads a string or number field of a JSON object.
func scalarField(data []byte, field string) (string, bool) {
	value, dataType, _, err := jsonparser.Get(data, field)
	if err != nil {
		return "", false
	}

	switch dataType {
	case jsonparser.String:
		parsed, err := jsonparser.ParseString(value)
		if err != nil {
			return "", false
		}
		return parsed, true
	case jsonparser.Number:
		return string(value), true
	}
	return "", false
}

// formatCPMIncrement rounds to 5 decimals, halves rounding up.
func formatCPMIncrement(increment float64) string {
	rounded := math.Floor(increment*100000+0.5) / 100000
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// InsertVideoTracking adds trackingURL to a video bid response: as its VAST impression URL when
// the bid carries a VAST URL and as an Impression node of every wrapper and inline ad of its VAST
// document. A malformed document is left unchanged and reported as a warning.
func InsertVideoTracking(bid *auction.BidResponse, trackingURL string) (TrackingTargets, error) {
	var targets TrackingTargets
	if !bid.IsVideo() || trackingURL == "" {
		return targets, nil
	}

	if bid.VastURL != "" {
		if bid.VastImpURL != "" {
			bid.VastImpURL = trackingURL + "&url=" + encodeURI(bid.VastImpURL)
		} else {
			bid.VastImpURL = trackingURL
		}
		targets.VastURL = true
	}

	if bid.VastXML != nil {
		vastXML, inserted, err := insertImpression(*bid.VastXML, trackingURL)
		if err != nil {
			return targets, &errortypes.Warning{
				Message:     fmt.Sprintf("VAST document of ad %s left unchanged: %s", bid.AdID, err),
				WarningCode: errortypes.MalformedVASTWarningCode,
			}
		}
		if inserted {
			bid.VastXML = &vastXML
			targets.VastXML = true
		}
	}

	return targets, nil
}

// uriUnreserved lists the ASCII bytes encodeURI writes as they are.
const uriUnreserved = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789;,/?:@&=+$-_.!~*'()#"

// encodeURI percent-encodes a URL the way browsers encode a complete URI: the characters that
// structure a URL are kept, so a chained URL stays readable by the tracking endpoint.
func encodeURI(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(uriUnreserved, c) >= 0 {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func insertImpression(vastXML, trackingURL string) (string, bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(vastXML); err != nil {
		return vastXML, false, err
	}
	if doc.Root() == nil {
		return vastXML, false, nil
	}

	inserted := false
	for _, path := range vastTrackingPaths {
		for _, node := range doc.FindElements(path) {
			node.CreateElement("Impression").CreateCData(trackingURL)
			inserted = true
		}
	}
	if !inserted {
		return vastXML, false, nil
	}

	result, err := doc.WriteToString()
	if err != nil {
		return vastXML, false, err
	}
	return result, true, nil
}
