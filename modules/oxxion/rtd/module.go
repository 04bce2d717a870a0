// Package rtd implements the Oxxion real-time data module. At request time it reports the
// ad-unit bids to the Oxxion scoring service and drops the bids it finds uninteresting. At
// auction end it inserts impression trackers carrying the CPM uplift into video bid responses.
package rtd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/hooks/hookstage"
	"github.com/oxxion/rtd-server/logger"
	"github.com/oxxion/rtd-server/modules/moduledeps"
	"github.com/oxxion/rtd-server/util/randomutil"
)

// Builder is the entry point for the module.
// An invalid configuration builds an inert module whose hooks do nothing.
func Builder(rawConfig json.RawMessage, deps moduledeps.ModuleDeps) (interface{}, error) {
	cfg, err := newConfig(rawConfig)
	if err != nil {
		logger.Warnf("oxxion.rtd: module disabled: %v", err)
		return &Module{}, nil
	}

	policy, warnings := cfg.policy()
	for _, warning := range warnings {
		logger.Warnf("oxxion.rtd: %s", warning)
	}

	registry, err := newContextRegistry(cfg.Registry)
	if err != nil {
		logger.Warnf("oxxion.rtd: module disabled: %v", err)
		return &Module{}, nil
	}

	metrics, err := newModuleMetrics(deps.PrometheusGatherer)
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return &Module{
		active:     true,
		hostConfig: rawConfig,
		cfg:        cfg,
		policy:     policy,
		registry:   registry,
		client:     newScoringClient(deps.HTTPClient),
		metrics:    metrics,
		rng:        randomutil.RandomNumberGenerator{},
	}, nil
}

// Module implements the Oxxion RTD hooks.
type Module struct {
	active     bool
	hostConfig json.RawMessage
	cfg        Config
	policy     FilterPolicy
	registry   ContextRegistry
	client     *scoringClient
	metrics    *moduleMetrics
	rng        randomutil.RandomGenerator
}

// HandleProcessedAuctionHook registers the video contexts of the ad units, then, when rate
// filtering is configured, scores the bids and removes the uninteresting ones.
// Scoring failures leave the request untouched.
func (m *Module) HandleProcessedAuctionHook(
	ctx context.Context,
	miCtx hookstage.ModuleInvocationContext,
	payload hookstage.ProcessedAuctionRequestPayload,
) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	result := hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{}
	if !m.active || payload.Request == nil {
		return result, nil
	}

	cfg, policy, warnings := m.resolveConfig(miCtx)
	result.Warnings = append(result.Warnings, warnings...)

	request := payload.Request
	m.registerContexts(ctx, policy, request.AdUnits)

	if !policy.RateFilteringActive() {
		return result, nil
	}

	records, index := BuildRequests(request.AdUnits)
	if len(records) == 0 {
		return result, nil
	}

	scoringCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	verdicts, err := m.client.fetchInterests(scoringCtx, policy.Domain, request.GDPRConsent, records)
	if err != nil {
		logger.Warnf("oxxion.rtd: skipping bid filtering for auction %s: %v", request.AuctionID, err)
		m.metrics.recordScoring(scoringStatusError)
		result.Warnings = append(result.Warnings, fmt.Sprintf("bid filtering skipped: %s", err))
		result.AnalyticsTags = newScoringErrorTags(err)
		return result, nil
	}
	m.metrics.recordScoring(scoringStatusOK)

	filtered, rejected, stats := filterOnBidRates(verdicts, request.AdUnits, index, policy, request.ResolveBidder, !cfg.Force, m.rng)
	m.metrics.recordDecisions(stats)

	result.ChangeSet.ProcessedAuctionRequest().AdUnits().Update(filtered)
	result.AnalyticsTags = newFilterTags(stats, rejected)

	if len(rejected) > 0 {
		m.client.reportRejected(ctx, policy.Domain, request.GDPRConsent, rejected, cfg.timeout())
	}

	return result, nil
}

// HandleAuctionResponseHook inserts impression trackers into the video bid responses of the
// transactions whose ad unit plays one of the configured video contexts.
func (m *Module) HandleAuctionResponseHook(
	ctx context.Context,
	miCtx hookstage.ModuleInvocationContext,
	payload hookstage.AuctionResponsePayload,
) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
	result := hookstage.HookResult[hookstage.AuctionResponsePayload]{}
	if !m.active || payload.AuctionEnd == nil {
		return result, nil
	}

	_, policy, warnings := m.resolveConfig(miCtx)
	result.Warnings = append(result.Warnings, warnings...)

	auctionEnd := payload.AuctionEnd
	summaries := TrackSecondPrices(auctionEnd.AdUnits, auctionEnd.BidsReceived, policy.Contexts)
	if len(summaries) == 0 {
		return result, nil
	}

	bids := make([]*auction.BidResponse, len(auctionEnd.BidsReceived))
	copy(bids, auctionEnd.BidsReceived)

	var tracked []string
	for _, summary := range summaries {
		for _, i := range summary.indexes() {
			bid := auctionEnd.BidsReceived[i]
			if !bid.IsVideo() {
				continue
			}

			trackingURL, ok := ImpressionURL(ctx, policy, m.registry, bid, summary.SecondMaxCPM)
			if !ok {
				continue
			}

			updated := *bid
			targets, err := InsertVideoTracking(&updated, trackingURL)
			if err != nil {
				logger.Warnf("oxxion.rtd: %v", err)
				result.Warnings = append(result.Warnings, err.Error())
			}
			if !targets.VastURL && !targets.VastXML {
				continue
			}

			m.metrics.recordTrackers(targets)
			bids[i] = &updated
			tracked = append(tracked, bid.AdID)
		}
	}

	if len(tracked) > 0 {
		result.ChangeSet.AuctionResponse().BidsReceived().Update(bids)
		result.AnalyticsTags = newTrackingTags(tracked)
	}

	return result, nil
}

// Shutdown waits for the pending rejected bid reports and releases the registry.
func (m *Module) Shutdown() {
	if !m.active {
		return
	}
	m.client.wait()
	if err := m.registry.Close(); err != nil {
		logger.Warnf("oxxion.rtd: failed to close registry: %v", err)
	}
}

// resolveConfig returns the configuration for the invoking account. Account overrides that
// do not form a valid configuration are ignored.
func (m *Module) resolveConfig(miCtx hookstage.ModuleInvocationContext) (Config, FilterPolicy, []string) {
	if len(miCtx.AccountConfig) == 0 {
		return m.cfg, m.policy, nil
	}

	cfg, err := mergeAccountConfig(m.hostConfig, miCtx.AccountConfig)
	if err != nil {
		logger.Warnf("oxxion.rtd: ignoring config of account %s: %v", miCtx.AccountID, err)
		return m.cfg, m.policy, []string{fmt.Sprintf("invalid account config ignored: %s", err)}
	}

	policy, warnings := cfg.policy()
	return cfg, policy, warnings
}

func (m *Module) registerContexts(ctx context.Context, policy FilterPolicy, adUnits []*auction.AdUnit) {
	for _, adUnit := range adUnits {
		videoContext, ok := adUnit.VideoContext()
		if !ok || !policy.HasContext(videoContext) {
			continue
		}
		if err := m.registry.Register(ctx, adUnit.Code, videoContext); err != nil {
			logger.Warnf("oxxion.rtd: failed to register ad unit %s: %v", adUnit.Code, err)
		}
	}
}
