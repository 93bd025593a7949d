package endpoints

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mxmCherry/openrtb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prebid/prebid-server-core/config"
	"github.com/prebid/prebid-server-core/metrics"
	metricsConf "github.com/prebid/prebid-server-core/metrics/config"
	"github.com/prebid/prebid-server-core/openrtb_ext"
	"github.com/prebid/prebid-server-core/timeout"
)

func TestTargetingUsesRequestGranularity(t *testing.T) {
	body := `{
		"request": {"id":"req","site":{"publisher":{"id":"123"}},"ext":{"prebid":{"targeting":{"pricegranularity":"high"}}}},
		"response": {"id":"req","seatbid":[{"seat":"appnexus","bid":[{"id":"bid-1","impid":"imp-1","price":1.234,"w":300,"h":250}]}]},
		"cacheids": {"bid-1":"cache-1"}
	}`
	targeting := postTargeting(t, body)

	assert.Equal(t, "1.23", targeting["bid-1"]["hb_pb"])
	assert.Equal(t, "cache-1", targeting["bid-1"]["hb_cache_id"])
	assert.Equal(t, "300x250", targeting["bid-1"]["hb_size_appnexus"])
	assert.Equal(t, "html", targeting["bid-1"]["hb_creative_loadtype"])
}

func TestTargetingFallsBackToAccountGranularity(t *testing.T) {
	// Account 123 uses the low granularity.
	body := `{
		"request": {"id":"req","site":{"publisher":{"id":"123"}}},
		"response": {"id":"req","seatbid":[{"seat":"appnexus","bid":[{"id":"bid-1","impid":"imp-1","price":1.234}]}]}
	}`
	targeting := postTargeting(t, body)
	assert.Equal(t, "1.00", targeting["bid-1"]["hb_pb"])
}

func TestTargetingFallsBackToHostGranularity(t *testing.T) {
	body := `{
		"request": {"id":"req","app":{"publisher":{"id":"unknown"}}},
		"response": {"id":"req","seatbid":[
			{"seat":"appnexus","bid":[{"id":"bid-1","impid":"imp-1","price":1.234}]},
			{"seat":"audienceNetwork","bid":[{"id":"bid-2","impid":"imp-1","price":2.5}]}
		]}
	}`
	targeting := postTargeting(t, body)

	assert.Equal(t, "1.20", targeting["bid-1"]["hb_pb_appnexus"])
	assert.NotContains(t, targeting["bid-1"], "hb_pb")
	assert.Equal(t, "mobile-app", targeting["bid-1"]["hb_env_appnexus"])

	assert.Equal(t, "2.50", targeting["bid-2"]["hb_pb"])
	assert.Equal(t, "demand_sdk", targeting["bid-2"]["hb_creative_loadtype"])
}

func TestTargetingUsesHostLengthMax(t *testing.T) {
	body := `{
		"request": {"id":"req","site":{"publisher":{"id":"123"}},"ext":{"prebid":{"targeting":{"pricegranularity":"high"}}}},
		"response": {"id":"req","seatbid":[{"seat":"appnexus","bid":[{"id":"bid-1","impid":"imp-1","price":1.234}]}]}
	}`
	targeting := postTargetingWithConfig(t, config.Targeting{PriceGranularity: "medium", LengthMax: 10}, body)

	assert.Equal(t, "1.23", targeting["bid-1"]["hb_pb_appn"])
	assert.Equal(t, "appnexus", targeting["bid-1"]["hb_bidder_"])
	assert.NotContains(t, targeting["bid-1"], "hb_pb_appnexus")
	assert.NotContains(t, targeting["bid-1"], "hb_bidder_appnexus")
	assert.Equal(t, "1.23", targeting["bid-1"]["hb_pb"])
}

func TestTargetingRequestLengthMaxWins(t *testing.T) {
	body := `{
		"request": {"id":"req","site":{"publisher":{"id":"123"}},"ext":{"prebid":{"targeting":{"pricegranularity":"high","lengthmax":8}}}},
		"response": {"id":"req","seatbid":[{"seat":"appnexus","bid":[{"id":"bid-1","impid":"imp-1","price":1.234}]}]}
	}`
	targeting := postTargetingWithConfig(t, config.Targeting{PriceGranularity: "medium", LengthMax: 10}, body)

	assert.Equal(t, "1.23", targeting["bid-1"]["hb_pb_ap"])
	assert.NotContains(t, targeting["bid-1"], "hb_pb_appn")
}

func TestTargetingBadInput(t *testing.T) {
	testCases := []struct {
		description string
		body        string
	}{
		{description: "Malformed JSON", body: `{`},
		{description: "No response", body: `{"request":{"id":"req"}}`},
		{description: "Malformed ext", body: `{"request":{"id":"req","ext":{"prebid":{"targeting":{"pricegranularity":{"ranges":[]}}}}},"response":{"id":"req"}}`},
	}

	for _, test := range testCases {
		me := newRequestMetricsMock()
		handler := NewTargetingEndpoint(newTestResolver(t), config.Targeting{PriceGranularity: "medium"}, timeout.NewFactory(nil), time.Second, me)
		recorder := serve(handler, "POST", "/targeting", []byte(test.body))

		assert.Equal(t, http.StatusBadRequest, recorder.Code, test.description)
		me.AssertCalled(t, "RecordRequest", metrics.Labels{RType: metrics.ReqTypeTargeting, RequestStatus: metrics.RequestStatusBadInput})
	}
}

// postTargeting runs the body through the endpoint, and returns the targeting written into each bid, keyed by bid ID.
func postTargeting(t *testing.T, body string) map[string]map[string]string {
	t.Helper()
	return postTargetingWithConfig(t, config.Targeting{PriceGranularity: "medium"}, body)
}

func postTargetingWithConfig(t *testing.T, cfg config.Targeting, body string) map[string]map[string]string {
	t.Helper()
	handler := NewTargetingEndpoint(newTestResolver(t), cfg, timeout.NewFactory(nil), time.Second, &metricsConf.NilMetricsEngine{})
	recorder := serve(handler, "POST", "/targeting", []byte(body))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var response openrtb.BidResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	targeting := make(map[string]map[string]string)
	for _, seatBid := range response.SeatBid {
		for _, bid := range seatBid.Bid {
			var ext openrtb_ext.ExtBid
			require.NoError(t, json.Unmarshal(bid.Ext, &ext))
			require.NotNil(t, ext.Prebid)
			targeting[bid.ID] = ext.Prebid.Targeting
		}
	}
	return targeting
}
