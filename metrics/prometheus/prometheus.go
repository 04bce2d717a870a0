package prometheusmetrics

import (
	"time"

	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics defines the Prometheus metrics backing the MetricsEngine implementation.
type Metrics struct {
	Registry *prometheus.Registry

	// General Metrics
	connectionsClosed  prometheus.Counter
	connectionsError   *prometheus.CounterVec
	connectionsOpened  prometheus.Counter
	requests           *prometheus.CounterVec
	requestsTimer      *prometheus.HistogramVec
	requestsQueueTimer *prometheus.HistogramVec

	// Module Metrics
	moduleDuration       *prometheus.HistogramVec
	moduleCalls          *prometheus.CounterVec
	moduleFailures       *prometheus.CounterVec
	moduleSuccessNoops   *prometheus.CounterVec
	moduleSuccessUpdates *prometheus.CounterVec
	moduleSuccessRejects *prometheus.CounterVec
	moduleExecutionError *prometheus.CounterVec
	moduleTimeouts       *prometheus.CounterVec
}

const (
	connectionErrorLabel = "connection_error"
	requestQueueLabel    = "request_queue_status"
	moduleLabel          = "module"
	requestStatusLabel   = "request_status"
	requestTypeLabel     = "request_type"
	stageLabel           = "stage"
)

const (
	connectionAcceptError = "accept"
	connectionCloseError  = "close"
)

const (
	requestQueueAccepted = "accepted"
	requestQueueTimedOut = "timed_out"
)

// NewMetrics initializes a new Prometheus metrics instance with preloaded label values.
func NewMetrics(cfg config.PrometheusMetrics) *Metrics {
	standardTimeBuckets := []float64{0.05, 0.1, 0.15, 0.20, 0.25, 0.3, 0.4, 0.5, 0.75, 1}
	queueTimeBuckets := []float64{0, 1, 5, 30, 60, 120, 180, 240, 300}
	moduleTimeBuckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

	metrics := Metrics{}
	metrics.Registry = prometheus.NewRegistry()

	metrics.connectionsClosed = newCounterWithoutLabels(cfg, metrics.Registry,
		"connections_closed",
		"Count of successful connections closed to the RTD server.")

	metrics.connectionsError = newCounter(cfg, metrics.Registry,
		"connections_error",
		"Count of errors for connection open and close attempts to the RTD server labeled by type.",
		[]string{connectionErrorLabel})

	metrics.connectionsOpened = newCounterWithoutLabels(cfg, metrics.Registry,
		"connections_opened",
		"Count of successful connections opened to the RTD server.")

	metrics.requests = newCounter(cfg, metrics.Registry,
		"requests",
		"Count of total requests to the RTD server labeled by type and status.",
		[]string{requestTypeLabel, requestStatusLabel})

	metrics.requestsTimer = newHistogramVec(cfg, metrics.Registry,
		"request_time_seconds",
		"Seconds to resolve successful RTD server requests labeled by type.",
		[]string{requestTypeLabel},
		standardTimeBuckets)

	metrics.requestsQueueTimer = newHistogramVec(cfg, metrics.Registry,
		"request_queue_time",
		"Seconds requests spent queued in front of the RTD server labeled by type and queue status.",
		[]string{requestTypeLabel, requestQueueLabel},
		queueTimeBuckets)

	moduleLabels := []string{moduleLabel, stageLabel}

	metrics.moduleDuration = newHistogramVec(cfg, metrics.Registry,
		"modules_duration",
		"Duration of the hook execution in seconds labeled by module and stage.",
		moduleLabels,
		moduleTimeBuckets)

	metrics.moduleCalls = newCounter(cfg, metrics.Registry,
		"modules_called",
		"Count of hook calls labeled by module and stage.",
		moduleLabels)

	metrics.moduleFailures = newCounter(cfg, metrics.Registry,
		"modules_failed",
		"Count of hook failures labeled by module and stage.",
		moduleLabels)

	metrics.moduleSuccessNoops = newCounter(cfg, metrics.Registry,
		"modules_success_noops",
		"Count of successful hook calls without mutations labeled by module and stage.",
		moduleLabels)

	metrics.moduleSuccessUpdates = newCounter(cfg, metrics.Registry,
		"modules_success_updates",
		"Count of successful hook calls with applied mutations labeled by module and stage.",
		moduleLabels)

	metrics.moduleSuccessRejects = newCounter(cfg, metrics.Registry,
		"modules_success_rejects",
		"Count of hook calls rejecting the stage labeled by module and stage.",
		moduleLabels)

	metrics.moduleExecutionError = newCounter(cfg, metrics.Registry,
		"modules_execution_errors",
		"Count of unexpected hook errors labeled by module and stage.",
		moduleLabels)

	metrics.moduleTimeouts = newCounter(cfg, metrics.Registry,
		"modules_timeouts",
		"Count of hook calls exceeding the group timeout labeled by module and stage.",
		moduleLabels)

	preloadLabelValues(&metrics)

	return &metrics
}

func newCounter(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newCounterWithoutLabels(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string) prometheus.Counter {
	opts := prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounter(opts)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(cfg config.PrometheusMetrics, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}

// preloadLabelValues initializes the request series so they are exported with a zero value
// before the first request is served.
func preloadLabelValues(m *Metrics) {
	for _, requestType := range metrics.RequestTypes() {
		for _, status := range metrics.RequestStatuses() {
			m.requests.With(prometheus.Labels{
				requestTypeLabel:   string(requestType),
				requestStatusLabel: string(status),
			})
		}
		m.requestsTimer.With(prometheus.Labels{requestTypeLabel: string(requestType)})
	}
}

func (m *Metrics) RecordConnectionAccept(success bool) {
	if success {
		m.connectionsOpened.Inc()
	} else {
		m.connectionsError.With(prometheus.Labels{
			connectionErrorLabel: connectionAcceptError,
		}).Inc()
	}
}

func (m *Metrics) RecordConnectionClose(success bool) {
	if success {
		m.connectionsClosed.Inc()
	} else {
		m.connectionsError.With(prometheus.Labels{
			connectionErrorLabel: connectionCloseError,
		}).Inc()
	}
}

func (m *Metrics) RecordRequest(labels metrics.Labels) {
	m.requests.With(prometheus.Labels{
		requestTypeLabel:   string(labels.RType),
		requestStatusLabel: string(labels.RequestStatus),
	}).Inc()
}

func (m *Metrics) RecordRequestTime(labels metrics.Labels, length time.Duration) {
	// Only record times for successful requests, as we don't have labels to screen out bad requests.
	if labels.RequestStatus == metrics.RequestStatusOK {
		m.requestsTimer.With(prometheus.Labels{
			requestTypeLabel: string(labels.RType),
		}).Observe(length.Seconds())
	}
}

func (m *Metrics) RecordRequestQueueTime(success bool, requestType metrics.RequestType, length time.Duration) {
	queueStatus := requestQueueTimedOut
	if success {
		queueStatus = requestQueueAccepted
	}
	m.requestsQueueTimer.With(prometheus.Labels{
		requestTypeLabel:  string(requestType),
		requestQueueLabel: queueStatus,
	}).Observe(length.Seconds())
}

func moduleLabelValues(labels metrics.ModuleLabels) prometheus.Labels {
	return prometheus.Labels{
		moduleLabel: labels.Module,
		stageLabel:  labels.Stage,
	}
}

func (m *Metrics) RecordModuleCalled(labels metrics.ModuleLabels, duration time.Duration) {
	m.moduleCalls.With(moduleLabelValues(labels)).Inc()
	m.moduleDuration.With(moduleLabelValues(labels)).Observe(duration.Seconds())
}

func (m *Metrics) RecordModuleFailed(labels metrics.ModuleLabels) {
	m.moduleFailures.With(moduleLabelValues(labels)).Inc()
}

func (m *Metrics) RecordModuleSuccessNooped(labels metrics.ModuleLabels) {
	m.moduleSuccessNoops.With(moduleLabelValues(labels)).Inc()
}

func (m *Metrics) RecordModuleSuccessUpdated(labels metrics.ModuleLabels) {
	m.moduleSuccessUpdates.With(moduleLabelValues(labels)).Inc()
}

func (m *Metrics) RecordModuleSuccessRejected(labels metrics.ModuleLabels) {
	m.moduleSuccessRejects.With(moduleLabelValues(labels)).Inc()
}

func (m *Metrics) RecordModuleExecutionError(labels metrics.ModuleLabels) {
	m.moduleExecutionError.With(moduleLabelValues(labels)).Inc()
}

func (m *Metrics) RecordModuleTimeout(labels metrics.ModuleLabels) {
	m.moduleTimeouts.With(moduleLabelValues(labels)).Inc()
}
