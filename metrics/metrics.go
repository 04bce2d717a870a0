package metrics

import (
	"time"
)

// Labels defines the labels that can be attached to the request metrics.
type Labels struct {
	RType         RequestType
	RequestStatus RequestStatus
}

// ModuleLabels defines the labels that can be attached to the module metrics.
type ModuleLabels struct {
	Module    string
	Stage     string
	AccountID string
}

// RequestType : Request type enumeration
type RequestType string

// The request types (endpoints)
const (
	ReqTypeRTDRequest    RequestType = "rtd_request"
	ReqTypeRTDAuctionEnd RequestType = "rtd_auction_end"
)

func RequestTypes() []RequestType {
	return []RequestType{
		ReqTypeRTDRequest,
		ReqTypeRTDAuctionEnd,
	}
}

// RequestStatus : The request return status
type RequestStatus string

// Request/return status
const (
	RequestStatusOK       RequestStatus = "ok"
	RequestStatusBadInput RequestStatus = "badinput"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusErr      RequestStatus = "err"
)

func RequestStatuses() []RequestStatus {
	return []RequestStatus{
		RequestStatusOK,
		RequestStatusBadInput,
		RequestStatusRejected,
		RequestStatusErr,
	}
}

// MetricsEngine is a generic interface to record metrics into the desired backend.
// Request metrics fire once per incoming request, module metrics once per hook invocation.
type MetricsEngine interface {
	RecordConnectionAccept(success bool)
	RecordConnectionClose(success bool)
	RecordRequest(labels Labels)
	RecordRequestTime(labels Labels, length time.Duration)
	// RecordRequestQueueTime records the time a request spent queued in front of the server.
	RecordRequestQueueTime(success bool, requestType RequestType, length time.Duration)
	RecordModuleCalled(labels ModuleLabels, duration time.Duration)
	RecordModuleFailed(labels ModuleLabels)
	RecordModuleSuccessNooped(labels ModuleLabels)
	RecordModuleSuccessUpdated(labels ModuleLabels)
	RecordModuleSuccessRejected(labels ModuleLabels)
	RecordModuleExecutionError(labels ModuleLabels)
	RecordModuleTimeout(labels ModuleLabels)
}
