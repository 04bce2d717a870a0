// Package rtd exposes the hook stages of the auction lifecycle over HTTP.
//
// POST /rtd/v1/request runs the processed auction request stage on the ad units of an auction
// and answers with the request as the modules left it. POST /rtd/v1/auction_end runs the auction
// response stage on the bids received and answers with the annotated bids.
package rtd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/errortypes"
	"github.com/oxxion/rtd-server/hooks"
	"github.com/oxxion/rtd-server/hooks/hookexecution"
	"github.com/oxxion/rtd-server/metrics"
	"github.com/oxxion/rtd-server/util/jsonutil"
	"github.com/oxxion/rtd-server/util/uuidutil"
)

// RequestResponse is the body answered by the request endpoint.
type RequestResponse struct {
	Request *auction.Request `json:"request"`
	Ext     ResponseExt      `json:"ext"`
}

// AuctionEndResponse is the body answered by the auction end endpoint.
type AuctionEndResponse struct {
	AuctionEnd *auction.AuctionEnd `json:"auctionEnd"`
	Ext        ResponseExt         `json:"ext"`
}

type ResponseExt struct {
	Prebid ExtPrebid `json:"prebid"`
}

type ExtPrebid struct {
	Modules *hookexecution.ModulesOutcome `json:"modules,omitempty"`
}

type endpointDeps struct {
	cfg           *config.Configuration
	planBuilder   hooks.ExecutionPlanBuilder
	metricsEngine metrics.MetricsEngine
	uuidGenerator uuidutil.UUIDGenerator
}

// NewRequestEndpoint returns the handler of the request-time stage.
func NewRequestEndpoint(
	uuidGenerator uuidutil.UUIDGenerator,
	cfg *config.Configuration,
	metricsEngine metrics.MetricsEngine,
	planBuilder hooks.ExecutionPlanBuilder,
) (httprouter.Handle, error) {
	if cfg == nil || metricsEngine == nil || planBuilder == nil || uuidGenerator == nil {
		return nil, errors.New("NewRequestEndpoint requires non-nil arguments")
	}
	deps := &endpointDeps{cfg: cfg, planBuilder: planBuilder, metricsEngine: metricsEngine, uuidGenerator: uuidGenerator}
	return httprouter.Handle(deps.Request), nil
}

// NewAuctionEndEndpoint returns the handler of the auction end stage.
func NewAuctionEndEndpoint(
	uuidGenerator uuidutil.UUIDGenerator,
	cfg *config.Configuration,
	metricsEngine metrics.MetricsEngine,
	planBuilder hooks.ExecutionPlanBuilder,
) (httprouter.Handle, error) {
	if cfg == nil || metricsEngine == nil || planBuilder == nil || uuidGenerator == nil {
		return nil, errors.New("NewAuctionEndEndpoint requires non-nil arguments")
	}
	deps := &endpointDeps{cfg: cfg, planBuilder: planBuilder, metricsEngine: metricsEngine, uuidGenerator: uuidGenerator}
	return httprouter.Handle(deps.AuctionEnd), nil
}

func (deps *endpointDeps) Request(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeRTDRequest,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		deps.metricsEngine.RecordRequest(labels)
		if labels.RequestStatus == metrics.RequestStatusOK {
			deps.metricsEngine.RecordRequestTime(labels, time.Since(start))
		}
	}()

	request := &auction.Request{}
	if err := deps.parseBody(r, request); err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}
	if err := validateRequest(request); err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}
	if err := deps.ensureAuctionID(&request.AuctionID); err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}

	executor, err := deps.newExecutor(hookexecution.EndpointRTDRequest, request.AccountID)
	if err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}

	if rejectErr, ok := hookexecution.CastRejectErr(executor.ExecuteProcessedAuctionStage(request)); ok {
		glog.Infof("%s: auction %s: %v", hookexecution.EndpointRTDRequest, request.AuctionID, rejectErr)
		labels.RequestStatus = metrics.RequestStatusRejected
		request.AdUnits = []*auction.AdUnit{}
	}

	writeResponse(w, RequestResponse{
		Request: request,
		Ext:     buildResponseExt(executor, isDebug(r)),
	})
}

func (deps *endpointDeps) AuctionEnd(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeRTDAuctionEnd,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		deps.metricsEngine.RecordRequest(labels)
		if labels.RequestStatus == metrics.RequestStatusOK {
			deps.metricsEngine.RecordRequestTime(labels, time.Since(start))
		}
	}()

	auctionEnd := &auction.AuctionEnd{}
	if err := deps.parseBody(r, auctionEnd); err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}
	if err := validateAuctionEnd(auctionEnd); err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}
	if err := deps.ensureAuctionID(&auctionEnd.AuctionID); err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}

	executor, err := deps.newExecutor(hookexecution.EndpointRTDAuctionEnd, auctionEnd.AccountID)
	if err != nil {
		labels.RequestStatus = writeError(w, err)
		return
	}

	if rejectErr, ok := hookexecution.CastRejectErr(executor.ExecuteAuctionResponseStage(auctionEnd)); ok {
		glog.Infof("%s: auction %s: %v", hookexecution.EndpointRTDAuctionEnd, auctionEnd.AuctionID, rejectErr)
		labels.RequestStatus = metrics.RequestStatusRejected
		auctionEnd.BidsReceived = []*auction.BidResponse{}
	}

	writeResponse(w, AuctionEndResponse{
		AuctionEnd: auctionEnd,
		Ext:        buildResponseExt(executor, isDebug(r)),
	})
}

func (deps *endpointDeps) parseBody(r *http.Request, v interface{}) error {
	lr := &io.LimitedReader{
		R: r.Body,
		N: deps.cfg.MaxRequestSize + 1,
	}
	body, err := io.ReadAll(lr)
	if err != nil {
		return &errortypes.BadInput{Message: fmt.Sprintf("failed to read request body: %v", err)}
	}
	if int64(len(body)) > deps.cfg.MaxRequestSize {
		return &errortypes.BadInput{Message: fmt.Sprintf("request size exceeds max_request_size of %d bytes", deps.cfg.MaxRequestSize)}
	}
	if err := jsonutil.UnmarshalValid(body, v); err != nil {
		return &errortypes.BadInput{Message: err.Error()}
	}
	return nil
}

func (deps *endpointDeps) ensureAuctionID(auctionID *string) error {
	if *auctionID != "" {
		return nil
	}
	id, err := deps.uuidGenerator.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate auction id: %v", err)
	}
	*auctionID = id
	return nil
}

// newExecutor builds the stage executor of a call. Unknown accounts run the host plan only.
func (deps *endpointDeps) newExecutor(endpoint, accountID string) (hookexecution.HookStageExecutor, error) {
	executor := hookexecution.NewHookExecutor(deps.planBuilder, endpoint, deps.metricsEngine)
	if account, ok := deps.cfg.GetAccount(accountID); ok {
		if account.Disabled {
			return nil, &errortypes.AccountDisabled{Message: fmt.Sprintf("account %s is disabled", accountID)}
		}
		executor.SetAccount(account)
	}
	return executor, nil
}

func validateRequest(request *auction.Request) error {
	for i, adUnit := range request.AdUnits {
		if adUnit == nil {
			return &errortypes.BadInput{Message: fmt.Sprintf("request.adUnits[%d] must not be null", i)}
		}
		if adUnit.Code == "" {
			return &errortypes.BadInput{Message: fmt.Sprintf(`request.adUnits[%d] missing required field: "code"`, i)}
		}
	}
	return nil
}

func validateAuctionEnd(auctionEnd *auction.AuctionEnd) error {
	for i, bid := range auctionEnd.BidsReceived {
		if bid == nil {
			return &errortypes.BadInput{Message: fmt.Sprintf("auctionEnd.bidsReceived[%d] must not be null", i)}
		}
	}
	return nil
}

func buildResponseExt(executor hookexecution.HookStageExecutor, debug bool) ResponseExt {
	outcome := hookexecution.BuildModulesOutcome(executor.GetOutcomes(), debug)
	if outcome.Errors == nil && outcome.Warnings == nil && outcome.Trace == nil {
		return ResponseExt{}
	}
	return ResponseExt{Prebid: ExtPrebid{Modules: &outcome}}
}

func isDebug(r *http.Request) bool {
	return r.URL.Query().Get("debug") == "1"
}

func writeResponse(w http.ResponseWriter, response interface{}) {
	body, err := jsonutil.Marshal(response)
	if err != nil {
		glog.Errorf("Failed to marshal RTD response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Critical error while marshaling the response: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// writeError answers with the status matching the error code and returns the request status to record.
func writeError(w http.ResponseWriter, err error) metrics.RequestStatus {
	switch errortypes.ReadCode(err) {
	case errortypes.BadInputErrorCode:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Invalid request format: %s\n", err.Error())
		return metrics.RequestStatusBadInput
	case errortypes.AccountDisabledErrorCode:
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Invalid request: %s\n", err.Error())
		return metrics.RequestStatusRejected
	default:
		glog.Errorf("RTD endpoint critical error: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Critical error while running the RTD endpoint: %v", err)
		return metrics.RequestStatusErr
	}
}
