package endpoints

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	"github.com/mxmCherry/openrtb"

	"github.com/prebid/prebid-server-core/config"
	"github.com/prebid/prebid-server-core/exchange"
	"github.com/prebid/prebid-server-core/metrics"
	"github.com/prebid/prebid-server-core/openrtb_ext"
	"github.com/prebid/prebid-server-core/timeout"
)

// targetingRequest is the body of POST /targeting.
// CacheIDs maps bid IDs to the IDs of their cached creatives.
type targetingRequest struct {
	Request  *openrtb.BidRequest  `json:"request"`
	Response *openrtb.BidResponse `json:"response"`
	CacheIDs map[string]string    `json:"cacheids"`
}

type targetingEndpoint struct {
	resolver       SettingsResolver
	cfg            config.Targeting
	timeoutFactory *timeout.Factory
	defaultTimeout time.Duration
	metricsEngine  metrics.MetricsEngine
}

// NewTargetingEndpoint implements POST /targeting.
//
// It writes targeting keywords into ext.prebid.targeting of every bid in the response, and returns the response.
// The price granularity comes from the request's ext.prebid.targeting, then the publisher's account,
// and then the host's targeting config.
func NewTargetingEndpoint(resolver SettingsResolver, cfg config.Targeting, timeoutFactory *timeout.Factory, defaultTimeout time.Duration, me metrics.MetricsEngine) httprouter.Handle {
	endpoint := &targetingEndpoint{
		resolver:       resolver,
		cfg:            cfg,
		timeoutFactory: timeoutFactory,
		defaultTimeout: defaultTimeout,
		metricsEngine:  me,
	}
	return endpoint.handle
}

func (e *targetingEndpoint) handle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeTargeting,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		e.metricsEngine.RecordRequest(labels)
		e.metricsEngine.RecordRequestTime(labels, time.Since(start))
	}()

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		writeError(w, http.StatusBadRequest, "Failed to read request body: "+err.Error())
		return
	}
	var req targetingRequest
	if err := json.Unmarshal(body, &req); err != nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		writeError(w, http.StatusBadRequest, "Malformed request body: "+err.Error())
		return
	}
	if req.Request == nil || req.Response == nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		writeError(w, http.StatusBadRequest, "request and response are both required")
		return
	}

	targeting, err := requestTargeting(req.Request)
	if err != nil {
		labels.RequestStatus = metrics.RequestStatusBadInput
		writeError(w, http.StatusBadRequest, "Malformed request.ext: "+err.Error())
		return
	}

	t := e.timeoutFactory.Create(e.requestTimeout(req.Request))
	creator := e.creatorFor(r.Context(), req.Request, targeting, t)
	if errs := exchange.ApplyTargeting(creator, req.Response.SeatBid, req.CacheIDs); len(errs) > 0 {
		for _, err := range errs {
			glog.Warningf("/targeting: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, req.Response)
}

func (e *targetingEndpoint) requestTimeout(req *openrtb.BidRequest) time.Duration {
	if req.TMax > 0 {
		return time.Duration(req.TMax) * time.Millisecond
	}
	return e.defaultTimeout
}

func (e *targetingEndpoint) creatorFor(ctx context.Context, req *openrtb.BidRequest, targeting *openrtb_ext.ExtRequestTargeting, t timeout.Timeout) *exchange.TargetingKeywordsCreator {
	isApp := req.App != nil
	lengthMax := e.cfg.LengthMax
	if targeting != nil && targeting.MaxLength > 0 {
		lengthMax = targeting.MaxLength
	}
	if targeting != nil && targeting.HasPriceGranularity {
		return exchange.NewTargetingKeywordsCreatorWithGranularity(targeting.PriceGranularity, isApp, lengthMax)
	}

	granularity := e.cfg.PriceGranularity
	if accountID := publisherID(req); accountID != "" {
		account, err := e.resolver.GetAccountByID(ctx, accountID, t)
		if err == nil && account.PriceGranularity != "" {
			granularity = account.PriceGranularity
		} else if err != nil {
			glog.V(2).Infof("/targeting: using the default price granularity for account %s: %v", accountID, err)
		}
	}
	return exchange.NewTargetingKeywordsCreatorWithGranularity(openrtb_ext.PriceGranularityFromString(granularity), isApp, lengthMax)
}

// requestTargeting returns ext.prebid.targeting, or nil if the request doesn't have one.
func requestTargeting(req *openrtb.BidRequest) (*openrtb_ext.ExtRequestTargeting, error) {
	if len(req.Ext) == 0 {
		return nil, nil
	}
	var ext openrtb_ext.ExtRequest
	if err := json.Unmarshal(req.Ext, &ext); err != nil {
		return nil, err
	}
	return ext.Prebid.Targeting, nil
}

func publisherID(req *openrtb.BidRequest) string {
	if req.Site != nil && req.Site.Publisher != nil {
		return req.Site.Publisher.ID
	}
	if req.App != nil && req.App.Publisher != nil {
		return req.App.Publisher.ID
	}
	return ""
}
