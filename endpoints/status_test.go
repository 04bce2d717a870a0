package endpoints

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusEndpoint(t *testing.T) {
	testCases := []struct {
		description  string
		response     string
		expectedCode int
		expectedBody string
	}{
		{
			description:  "empty response",
			expectedCode: http.StatusNoContent,
		},
		{
			description:  "configured response",
			response:     "ready",
			expectedCode: http.StatusOK,
			expectedBody: "ready",
		},
	}

	for _, test := range testCases {
		handler := NewStatusEndpoint(test.response)
		w := httptest.NewRecorder()

		handler(w, httptest.NewRequest(http.MethodGet, "/status", nil), nil)

		assert.Equal(t, test.expectedCode, w.Code, test.description)
		assert.Equal(t, test.expectedBody, w.Body.String(), test.description)
	}
}
