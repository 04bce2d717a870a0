package metrics

import (
	"time"
)

// NilMetricsEngine implements the MetricsEngine interface where no metrics are actually captured. This is
// used if no metric backend is configured and also for tests.
type NilMetricsEngine struct{}

func (me *NilMetricsEngine) RecordConnectionAccept(success bool) {}

func (me *NilMetricsEngine) RecordConnectionClose(success bool) {}

func (me *NilMetricsEngine) RecordRequest(labels Labels) {}

func (me *NilMetricsEngine) RecordRequestTime(labels Labels, length time.Duration) {}

func (me *NilMetricsEngine) RecordRequestQueueTime(success bool, requestType RequestType, length time.Duration) {
}

func (me *NilMetricsEngine) RecordModuleCalled(labels ModuleLabels, duration time.Duration) {}

func (me *NilMetricsEngine) RecordModuleFailed(labels ModuleLabels) {}

func (me *NilMetricsEngine) RecordModuleSuccessNooped(labels ModuleLabels) {}

func (me *NilMetricsEngine) RecordModuleSuccessUpdated(labels ModuleLabels) {}

func (me *NilMetricsEngine) RecordModuleSuccessRejected(labels ModuleLabels) {}

func (me *NilMetricsEngine) RecordModuleExecutionError(labels ModuleLabels) {}

func (me *NilMetricsEngine) RecordModuleTimeout(labels ModuleLabels) {}
