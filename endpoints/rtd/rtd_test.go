package rtd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oxxion/rtd-server/auction"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/hooks"
	"github.com/oxxion/rtd-server/hooks/hookexecution"
	"github.com/oxxion/rtd-server/hooks/hookstage"
	"github.com/oxxion/rtd-server/metrics"
	"github.com/oxxion/rtd-server/util/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModuleCode = "acme.test"

type fakeUUIDGenerator struct {
	id  string
	err error
}

func (f fakeUUIDGenerator) Generate() (string, error) {
	return f.id, f.err
}

type recordingMetricsEngine struct {
	metrics.NilMetricsEngine
	mu     sync.Mutex
	labels []metrics.Labels
	timed  []metrics.Labels
}

func (me *recordingMetricsEngine) RecordRequest(labels metrics.Labels) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.labels = append(me.labels, labels)
}

func (me *recordingMetricsEngine) RecordRequestTime(labels metrics.Labels, _ time.Duration) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.timed = append(me.timed, labels)
}

// keepFirstBidHook keeps the first bid of every ad unit and the first received bid.
type keepFirstBidHook struct {
	reject bool
}

func (h keepFirstBidHook) HandleProcessedAuctionHook(_ context.Context, _ hookstage.ModuleInvocationContext, payload hookstage.ProcessedAuctionRequestPayload) (hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload], error) {
	result := hookstage.HookResult[hookstage.ProcessedAuctionRequestPayload]{Reject: h.reject, Warnings: []string{"first bid kept"}}
	adUnits := make([]*auction.AdUnit, 0, len(payload.Request.AdUnits))
	for _, adUnit := range payload.Request.AdUnits {
		kept := *adUnit
		if len(kept.Bids) > 1 {
			kept.Bids = kept.Bids[:1]
		}
		adUnits = append(adUnits, &kept)
	}
	result.ChangeSet.ProcessedAuctionRequest().AdUnits().Update(adUnits)
	return result, nil
}

func (h keepFirstBidHook) HandleAuctionResponseHook(_ context.Context, _ hookstage.ModuleInvocationContext, payload hookstage.AuctionResponsePayload) (hookstage.HookResult[hookstage.AuctionResponsePayload], error) {
	result := hookstage.HookResult[hookstage.AuctionResponsePayload]{Reject: h.reject}
	if len(payload.AuctionEnd.BidsReceived) > 1 {
		result.ChangeSet.AuctionResponse().BidsReceived().Update(payload.AuctionEnd.BidsReceived[:1])
	}
	return result, nil
}

func newTestHooksConfig() config.Hooks {
	var plan config.HookExecutionPlan
	data := `{"endpoints": {
		"/rtd/v1/request": {"stages": {"processed_auction_request": {"groups": [{"timeout": 1000, "hook_sequence": [{"module_code": "acme.test", "hook_impl_code": "keep-first"}]}]}}},
		"/rtd/v1/auction_end": {"stages": {"auction_response": {"groups": [{"timeout": 1000, "hook_sequence": [{"module_code": "acme.test", "hook_impl_code": "keep-first"}]}]}}}
	}}`
	if err := jsonutil.Unmarshal([]byte(data), &plan); err != nil {
		panic(err)
	}
	return config.Hooks{Enabled: true, HostExecutionPlan: plan}
}

func newTestPlanBuilder(t *testing.T, hook keepFirstBidHook) hooks.ExecutionPlanBuilder {
	repo, err := hooks.NewHookRepository(map[string]interface{}{testModuleCode: hook})
	require.NoError(t, err)
	return hooks.NewExecutionPlanBuilder(newTestHooksConfig(), repo)
}

func newTestConfig() *config.Configuration {
	return &config.Configuration{
		MaxRequestSize: 1024,
		Accounts: map[string]config.Account{
			"pub-1":    {},
			"disabled": {Disabled: true},
		},
	}
}

func newTestDeps(t *testing.T, hook keepFirstBidHook) (*endpointDeps, *recordingMetricsEngine) {
	me := &recordingMetricsEngine{}
	return &endpointDeps{
		cfg:           newTestConfig(),
		planBuilder:   newTestPlanBuilder(t, hook),
		metricsEngine: me,
		uuidGenerator: fakeUUIDGenerator{id: "generated-id"},
	}, me
}

const requestBody = `{
	"auctionId": "auction-1",
	"accountId": "pub-1",
	"adUnits": [
		{"code": "video1", "mediaTypes": {"video": {"context": "outstream"}}, "bids": [{"bidder": "appnexus", "params": {"placementId": 1}}, {"bidder": "rubicon", "params": {}}]}
	],
	"gdprConsent": "consent"
}`

func TestRequestEndpoint(t *testing.T) {
	deps, me := newTestDeps(t, keepFirstBidHook{})

	w := httptest.NewRecorder()
	deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request", strings.NewReader(requestBody)), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response RequestResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Request)
	assert.Equal(t, "auction-1", response.Request.AuctionID)
	require.Len(t, response.Request.AdUnits, 1)
	require.Len(t, response.Request.AdUnits[0].Bids, 1)
	assert.Equal(t, "appnexus", response.Request.AdUnits[0].Bids[0].Bidder)

	require.NotNil(t, response.Ext.Prebid.Modules)
	assert.Equal(t, hookexecution.Messages{testModuleCode: {"keep-first": {"first bid kept"}}}, response.Ext.Prebid.Modules.Warnings)
	assert.Nil(t, response.Ext.Prebid.Modules.Trace)

	okLabels := metrics.Labels{RType: metrics.ReqTypeRTDRequest, RequestStatus: metrics.RequestStatusOK}
	assert.Equal(t, []metrics.Labels{okLabels}, me.labels)
	assert.Equal(t, []metrics.Labels{okLabels}, me.timed)
}

func TestRequestEndpointDebugTrace(t *testing.T) {
	deps, _ := newTestDeps(t, keepFirstBidHook{})

	w := httptest.NewRecorder()
	deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request?debug=1", strings.NewReader(requestBody)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response RequestResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Ext.Prebid.Modules)
	require.NotNil(t, response.Ext.Prebid.Modules.Trace)
	require.Len(t, response.Ext.Prebid.Modules.Trace.Stages, 1)
	assert.Equal(t, hooks.StageProcessedAuctionRequest, response.Ext.Prebid.Modules.Trace.Stages[0].Stage)
}

func TestRequestEndpointGeneratesAuctionID(t *testing.T) {
	deps, _ := newTestDeps(t, keepFirstBidHook{})

	w := httptest.NewRecorder()
	deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request", strings.NewReader(`{"adUnits": []}`)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response RequestResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "generated-id", response.Request.AuctionID)
	assert.Empty(t, response.Request.AdUnits)
}

func TestRequestEndpointRejected(t *testing.T) {
	deps, me := newTestDeps(t, keepFirstBidHook{reject: true})

	w := httptest.NewRecorder()
	deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request", strings.NewReader(requestBody)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response RequestResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.Request.AdUnits)

	assert.Equal(t, []metrics.Labels{{RType: metrics.ReqTypeRTDRequest, RequestStatus: metrics.RequestStatusRejected}}, me.labels)
	assert.Empty(t, me.timed)
}

func TestRequestEndpointErrors(t *testing.T) {
	testCases := []struct {
		description    string
		body           string
		uuidGenerator  fakeUUIDGenerator
		expectedStatus int
		expectedBody   string
		expectedLabel  metrics.RequestStatus
	}{
		{
			description:    "malformed-json",
			body:           `{"adUnits": [`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid request format: ",
			expectedLabel:  metrics.RequestStatusBadInput,
		},
		{
			description:    "oversized-body",
			body:           `{"adUnits": [], "auctionId": "` + strings.Repeat("a", 2048) + `"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid request format: request size exceeds max_request_size of 1024 bytes",
			expectedLabel:  metrics.RequestStatusBadInput,
		},
		{
			description:    "null-ad-unit",
			body:           `{"auctionId": "a", "adUnits": [null]}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Invalid request format: request.adUnits[0] must not be null",
			expectedLabel:  metrics.RequestStatusBadInput,
		},
		{
			description:    "ad-unit-without-code",
			body:           `{"auctionId": "a", "adUnits": [{"bids": []}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `Invalid request format: request.adUnits[0] missing required field: "code"`,
			expectedLabel:  metrics.RequestStatusBadInput,
		},
		{
			description:    "disabled-account",
			body:           `{"auctionId": "a", "accountId": "disabled", "adUnits": []}`,
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "Invalid request: account disabled is disabled",
			expectedLabel:  metrics.RequestStatusRejected,
		},
		{
			description:    "auction-id-generation-failure",
			body:           `{"adUnits": []}`,
			uuidGenerator:  fakeUUIDGenerator{err: errors.New("no entropy")},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Critical error while running the RTD endpoint: failed to generate auction id: no entropy",
			expectedLabel:  metrics.RequestStatusErr,
		},
	}

	for _, test := range testCases {
		t.Run(test.description, func(t *testing.T) {
			deps, me := newTestDeps(t, keepFirstBidHook{})
			deps.uuidGenerator = test.uuidGenerator

			w := httptest.NewRecorder()
			deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request", strings.NewReader(test.body)), nil)

			assert.Equal(t, test.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), test.expectedBody)
			assert.Equal(t, []metrics.Labels{{RType: metrics.ReqTypeRTDRequest, RequestStatus: test.expectedLabel}}, me.labels)
			assert.Empty(t, me.timed)
		})
	}
}

const auctionEndBody = `{
	"auctionId": "auction-1",
	"adUnits": [{"code": "video1", "transactionId": "tx1", "mediaTypes": {"video": {"context": "outstream"}}, "bids": []}],
	"bidsReceived": [
		{"adId": "ad-1", "adUnitCode": "video1", "cpm": 5, "mediaType": "video", "vastUrl": "https://vast.example.com/1"},
		{"adId": "ad-2", "adUnitCode": "video1", "cpm": 3, "mediaType": "video", "vastUrl": "https://vast.example.com/2"}
	]
}`

func TestAuctionEndEndpoint(t *testing.T) {
	deps, me := newTestDeps(t, keepFirstBidHook{})

	w := httptest.NewRecorder()
	deps.AuctionEnd(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/auction_end", strings.NewReader(auctionEndBody)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response AuctionEndResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.AuctionEnd)
	require.Len(t, response.AuctionEnd.BidsReceived, 1)
	assert.Equal(t, "ad-1", response.AuctionEnd.BidsReceived[0].AdID)
	assert.Nil(t, response.Ext.Prebid.Modules, "no messages nor trace to report")

	okLabels := metrics.Labels{RType: metrics.ReqTypeRTDAuctionEnd, RequestStatus: metrics.RequestStatusOK}
	assert.Equal(t, []metrics.Labels{okLabels}, me.labels)
	assert.Equal(t, []metrics.Labels{okLabels}, me.timed)
}

func TestAuctionEndEndpointRejected(t *testing.T) {
	deps, me := newTestDeps(t, keepFirstBidHook{reject: true})

	w := httptest.NewRecorder()
	deps.AuctionEnd(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/auction_end", strings.NewReader(auctionEndBody)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response AuctionEndResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	assert.Empty(t, response.AuctionEnd.BidsReceived)
	assert.Equal(t, []metrics.Labels{{RType: metrics.ReqTypeRTDAuctionEnd, RequestStatus: metrics.RequestStatusRejected}}, me.labels)
}

func TestAuctionEndEndpointNullBid(t *testing.T) {
	deps, me := newTestDeps(t, keepFirstBidHook{})

	w := httptest.NewRecorder()
	deps.AuctionEnd(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/auction_end", strings.NewReader(`{"bidsReceived": [null]}`)), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request format: auctionEnd.bidsReceived[0] must not be null\n", w.Body.String())
	assert.Equal(t, []metrics.Labels{{RType: metrics.ReqTypeRTDAuctionEnd, RequestStatus: metrics.RequestStatusBadInput}}, me.labels)
}

func TestEndpointsKeepUnmodeledMembers(t *testing.T) {
	deps, _ := newTestDeps(t, keepFirstBidHook{})

	w := httptest.NewRecorder()
	deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request", strings.NewReader(`{
		"auctionId": "auction-1",
		"timeout": 1500,
		"adUnits": [{
			"code": "video1",
			"ortb2Imp": {"ext": {"gpid": "/1/video"}},
			"mediaTypes": {"video": {"context": "outstream", "api": [2], "startdelay": 0}},
			"bids": [
				{"bidder": "appnexus", "params": {"placementId": 1}, "userId": {"pubcid": "u-1"}},
				{"bidder": "rubicon", "params": {}}
			]
		}]
	}`)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var requestResponse struct {
		Request json.RawMessage `json:"request"`
	}
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &requestResponse))
	assert.JSONEq(t, `{
		"auctionId": "auction-1",
		"timeout": 1500,
		"adUnits": [{
			"code": "video1",
			"ortb2Imp": {"ext": {"gpid": "/1/video"}},
			"mediaTypes": {"video": {"context": "outstream", "api": [2], "startdelay": 0}},
			"bids": [{"bidder": "appnexus", "params": {"placementId": 1}, "userId": {"pubcid": "u-1"}}]
		}]
	}`, string(requestResponse.Request))

	w = httptest.NewRecorder()
	deps.AuctionEnd(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/auction_end", strings.NewReader(`{
		"auctionId": "auction-1",
		"bidsReceived": [
			{"adId": "1", "adUnitCode": "v", "cpm": 2, "ad": "<div>creative</div>", "dealId": "deal-1", "meta": {"advertiserDomains": ["example.com"]}, "adserverTargeting": {"hb_pb": "2.00"}},
			{"adId": "2", "adUnitCode": "v", "cpm": 1}
		]
	}`)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var auctionEndResponse struct {
		AuctionEnd json.RawMessage `json:"auctionEnd"`
	}
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &auctionEndResponse))
	assert.JSONEq(t, `{
		"auctionId": "auction-1",
		"bidsReceived": [
			{"adId": "1", "adUnitCode": "v", "cpm": 2, "ad": "<div>creative</div>", "dealId": "deal-1", "meta": {"advertiserDomains": ["example.com"]}, "adserverTargeting": {"hb_pb": "2.00"}}
		]
	}`, string(auctionEndResponse.AuctionEnd))
}

func TestHooksDisabled(t *testing.T) {
	deps, _ := newTestDeps(t, keepFirstBidHook{})
	deps.planBuilder = hooks.NewExecutionPlanBuilder(config.Hooks{}, nil)

	w := httptest.NewRecorder()
	deps.Request(w, httptest.NewRequest(http.MethodPost, "/rtd/v1/request", strings.NewReader(requestBody)), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response RequestResponse
	require.NoError(t, jsonutil.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Request.AdUnits, 1)
	assert.Len(t, response.Request.AdUnits[0].Bids, 2)
	assert.Nil(t, response.Ext.Prebid.Modules)
}

func TestNewEndpointsRequireArguments(t *testing.T) {
	planBuilder := hooks.NewExecutionPlanBuilder(config.Hooks{}, nil)

	_, err := NewRequestEndpoint(nil, newTestConfig(), &metrics.NilMetricsEngine{}, planBuilder)
	assert.EqualError(t, err, "NewRequestEndpoint requires non-nil arguments")
	_, err = NewAuctionEndEndpoint(fakeUUIDGenerator{}, nil, &metrics.NilMetricsEngine{}, planBuilder)
	assert.EqualError(t, err, "NewAuctionEndEndpoint requires non-nil arguments")

	handle, err := NewRequestEndpoint(fakeUUIDGenerator{}, newTestConfig(), &metrics.NilMetricsEngine{}, planBuilder)
	require.NoError(t, err)
	assert.NotNil(t, handle)
}
