package aspects

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/oxxion/rtd-server/config"
	"github.com/oxxion/rtd-server/metrics"
	"github.com/stretchr/testify/assert"
)

const reqTimeInQueueHeaderName = "X-Ngx-Request-Time-In-Queue"
const reqTimeoutHeaderName = "X-Ngx-Request-Timeout"

func TestAny(t *testing.T) {
	testCases := []struct {
		description         string
		reqTimeInQueue      string
		reqTimeOut          string
		expectedRespCode    int
		expectedRespBody    string
		requestTimeMetric   bool
		expectedQueueResult bool
		expectedQueueTime   time.Duration
	}{
		{
			description:       "no request timeout headers",
			expectedRespCode:  http.StatusOK,
			expectedRespBody:  "Executed",
			requestTimeMetric: false,
		},
		{
			description:       "wrong format of the headers",
			reqTimeInQueue:    "test1",
			reqTimeOut:        "test2",
			expectedRespCode:  http.StatusInternalServerError,
			expectedRespBody:  "Request timeout headers are incorrect (wrong format)",
			requestTimeMetric: false,
		},
		{
			description:         "request stayed too long in the queue",
			reqTimeInQueue:      "6",
			reqTimeOut:          "5",
			expectedRespCode:    http.StatusRequestTimeout,
			expectedRespBody:    "Queued request processing time exceeded maximum",
			requestTimeMetric:   true,
			expectedQueueResult: false,
			expectedQueueTime:   6 * time.Second,
		},
		{
			description:         "request is processed in time",
			reqTimeInQueue:      "1.5",
			reqTimeOut:          "5",
			expectedRespCode:    http.StatusOK,
			expectedRespBody:    "Executed",
			requestTimeMetric:   true,
			expectedQueueResult: true,
			expectedQueueTime:   1500 * time.Millisecond,
		},
	}

	for _, test := range testCases {
		t.Run(test.description, func(t *testing.T) {
			reqTimeoutHeaders := config.RequestTimeoutHeaders{
				RequestTimeInQueue:    reqTimeInQueueHeaderName,
				RequestTimeoutInQueue: reqTimeoutHeaderName,
			}

			metricsEngine := &metrics.MetricsEngineMock{}
			if test.requestTimeMetric {
				metricsEngine.On("RecordRequestQueueTime", test.expectedQueueResult, metrics.ReqTypeRTDRequest, test.expectedQueueTime).Once()
			}

			req := httptest.NewRequest(http.MethodPost, "/rtd/v1/request", nil)
			if test.reqTimeInQueue != "" {
				req.Header.Set(reqTimeInQueueHeaderName, test.reqTimeInQueue)
			}
			if test.reqTimeOut != "" {
				req.Header.Set(reqTimeoutHeaderName, test.reqTimeOut)
			}

			handler := QueuedRequestTimeout(mockHandler, reqTimeoutHeaders, metricsEngine, metrics.ReqTypeRTDRequest)
			w := httptest.NewRecorder()
			handler(w, req, nil)

			assert.Equal(t, test.expectedRespCode, w.Code)
			assert.Equal(t, test.expectedRespBody, w.Body.String())
			metricsEngine.AssertExpectations(t)
		})
	}
}

func mockHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Executed"))
}
