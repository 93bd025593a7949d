package endpoints

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prebid/prebid-server-core/health"
)

func TestVersionEndpoint(t *testing.T) {
	testCases := []struct {
		description string
		version     string
		revision    string
		expected    string
	}{
		{
			description: "Both set",
			version:     "1.2.3",
			revision:    "abc",
			expected:    `{"revision":"abc","version":"1.2.3"}`,
		},
		{
			description: "Neither set",
			expected:    `{"revision":"not-set","version":"not-set"}`,
		},
	}

	for _, test := range testCases {
		recorder := serve(NewVersionEndpoint(test.version, test.revision), "GET", "/version", nil)
		assert.JSONEq(t, test.expected, recorder.Body.String(), test.description)
	}
}

func TestStatusEndpoint(t *testing.T) {
	recorder := serve(NewStatusEndpoint(""), "GET", "/status", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = serve(NewStatusEndpoint("ready"), "GET", "/status", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ready", recorder.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	updated := time.Date(2019, time.March, 4, 10, 0, 0, 0, time.UTC)
	testCases := []struct {
		description  string
		checkers     []health.Checker
		expectedCode int
		expectedBody string
	}{
		{
			description:  "No checkers",
			expectedCode: http.StatusOK,
			expectedBody: `{}`,
		},
		{
			description: "Everything up",
			checkers: []health.Checker{
				fakeChecker{name: "database", status: &health.StatusResponse{Status: health.StatusUp, LastUpdated: updated}},
				fakeChecker{name: "pending"},
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"database":{"status":"UP","last_updated":"2019-03-04T10:00:00Z"}}`,
		},
		{
			description: "Something down",
			checkers: []health.Checker{
				fakeChecker{name: "database", status: &health.StatusResponse{Status: health.StatusDown, LastUpdated: updated}},
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"database":{"status":"DOWN","last_updated":"2019-03-04T10:00:00Z"}}`,
		},
	}

	for _, test := range testCases {
		recorder := serve(NewHealthEndpoint(test.checkers), "GET", "/health", nil)
		assert.Equal(t, test.expectedCode, recorder.Code, test.description)
		assert.JSONEq(t, test.expectedBody, recorder.Body.String(), test.description)
	}
}

type fakeChecker struct {
	name   string
	status *health.StatusResponse
}

func (c fakeChecker) Name() string {
	return c.name
}

func (c fakeChecker) Status() *health.StatusResponse {
	return c.status
}
