package metrics

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordConnectionAccept mock
func (me *MetricsEngineMock) RecordConnectionAccept(success bool) {
	me.Called(success)
}

// RecordConnectionClose mock
func (me *MetricsEngineMock) RecordConnectionClose(success bool) {
	me.Called(success)
}

// RecordRequest mock
func (me *MetricsEngineMock) RecordRequest(labels Labels) {
	me.Called(labels)
}

// RecordRequestTime mock
func (me *MetricsEngineMock) RecordRequestTime(labels Labels, length time.Duration) {
	me.Called(labels, length)
}

// RecordRequestQueueTime mock
func (me *MetricsEngineMock) RecordRequestQueueTime(success bool, requestType RequestType, length time.Duration) {
	me.Called(success, requestType, length)
}

func (me *MetricsEngineMock) RecordModuleCalled(labels ModuleLabels, duration time.Duration) {
	me.Called(labels, duration)
}

func (me *MetricsEngineMock) RecordModuleFailed(labels ModuleLabels) {
	me.Called(labels)
}

func (me *MetricsEngineMock) RecordModuleSuccessNooped(labels ModuleLabels) {
	me.Called(labels)
}

func (me *MetricsEngineMock) RecordModuleSuccessUpdated(labels ModuleLabels) {
	me.Called(labels)
}

func (me *MetricsEngineMock) RecordModuleSuccessRejected(labels ModuleLabels) {
	me.Called(labels)
}

func (me *MetricsEngineMock) RecordModuleExecutionError(labels ModuleLabels) {
	me.Called(labels)
}

func (me *MetricsEngineMock) RecordModuleTimeout(labels ModuleLabels) {
	me.Called(labels)
}
