package rtd

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusLabel   = "status"
	decisionLabel = "decision"
	targetLabel   = "target"

	scoringStatusOK    = "ok"
	scoringStatusError = "error"

	decisionKept     = "kept"
	decisionRejected = "rejected"
	decisionSampled  = "sampled"
	decisionExempt   = "exempt"

	targetVastURL = "vast_url"
	targetVastXML = "vast_xml"
)

type moduleMetrics struct {
	scoringRequests *prometheus.CounterVec
	bids            *prometheus.CounterVec
	trackers        *prometheus.CounterVec
}

// newModuleMetrics registers the module counters on registry. Counters are still usable
// without a registry, they are just not exported.
func newModuleMetrics(registry *prometheus.Registry) (*moduleMetrics, error) {
	metrics := &moduleMetrics{
		scoringRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oxxion_rtd_scoring_requests_total",
			Help: "Count of requests to the Oxxion scoring service labeled by status.",
		}, []string{statusLabel}),
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oxxion_rtd_bids_total",
			Help: "Count of ad-unit bids run through the interest filter labeled by decision.",
		}, []string{decisionLabel}),
		trackers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oxxion_rtd_trackers_total",
			Help: "Count of impression trackers inserted into video bid responses labeled by target.",
		}, []string{targetLabel}),
	}

	if registry == nil {
		return metrics, nil
	}

	var err error
	metrics.scoringRequests, err = register(registry, metrics.scoringRequests)
	if err != nil {
		return nil, err
	}
	metrics.bids, err = register(registry, metrics.bids)
	if err != nil {
		return nil, err
	}
	metrics.trackers, err = register(registry, metrics.trackers)
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

// register reuses the collector already registered under the same name.
func register(registry *prometheus.Registry, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registry.Register(counter); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			if existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

func (m *moduleMetrics) recordScoring(status string) {
	m.scoringRequests.WithLabelValues(status).Inc()
}

func (m *moduleMetrics) recordDecisions(stats filterStats) {
	m.bids.WithLabelValues(decisionKept).Add(float64(stats.kept))
	m.bids.WithLabelValues(decisionRejected).Add(float64(stats.rejected))
	m.bids.WithLabelValues(decisionSampled).Add(float64(stats.sampled))
	m.bids.WithLabelValues(decisionExempt).Add(float64(stats.exempt))
}

func (m *moduleMetrics) recordTrackers(targets TrackingTargets) {
	if targets.VastURL {
		m.trackers.WithLabelValues(targetVastURL).Inc()
	}
	if targets.VastXML {
		m.trackers.WithLabelValues(targetVastXML).Inc()
	}
}
