package rtd

import (
	"github.com/oxxion/rtd-server/hooks/hookanalytics"
	"github.com/samber/lo"
)

const (
	filterActivity   = "oxxion_bid_filter"
	trackingActivity = "oxxion_video_tracking"
)

func newFilterTags(stats filterStats, rejected []RejectedBid) hookanalytics.Analytics {
	status := hookanalytics.ResultStatusAllow
	if len(rejected) > 0 {
		status = hookanalytics.ResultStatusModify
	}

	return hookanalytics.Analytics{
		Activities: []hookanalytics.Activity{{
			Name:   filterActivity,
			Status: hookanalytics.ActivityStatusSuccess,
			Results: []hookanalytics.Result{{
				Status: status,
				Values: map[string]interface{}{
					decisionKept:     stats.kept,
					decisionRejected: stats.rejected,
					decisionSampled:  stats.sampled,
					decisionExempt:   stats.exempt,
				},
				AppliedTo: hookanalytics.AppliedTo{
					Bidders: lo.Uniq(lo.Map(rejected, func(bid RejectedBid, _ int) string {
						return bid.Bidder
					})),
					AdUnitCodes: lo.Uniq(lo.Map(rejected, func(bid RejectedBid, _ int) string {
						return bid.Code
					})),
				},
			}},
		}},
	}
}

func newScoringErrorTags(err error) hookanalytics.Analytics {
	return hookanalytics.Analytics{
		Activities: []hookanalytics.Activity{{
			Name:   filterActivity,
			Status: hookanalytics.ActivityStatusError,
			Results: []hookanalytics.Result{{
				Status: hookanalytics.ResultStatusError,
				Values: map[string]interface{}{"error": err.Error()},
			}},
		}},
	}
}

func newTrackingTags(adIDs []string) hookanalytics.Analytics {
	return hookanalytics.Analytics{
		Activities: []hookanalytics.Activity{{
			Name:   trackingActivity,
			Status: hookanalytics.ActivityStatusSuccess,
			Results: []hookanalytics.Result{{
				Status: hookanalytics.ResultStatusModify,
				Values: map[string]interface{}{"count": len(adIDs)},
				AppliedTo: hookanalytics.AppliedTo{
					BidIds:   adIDs,
					Response: true,
				},
			}},
		}},
	}
}
