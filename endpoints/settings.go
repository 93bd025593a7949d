package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/metrics"
	"github.com/prebid/prebid-server-core/settings"
	"github.com/prebid/prebid-server-core/timeout"
)

// SettingsResolver is the part of settings.ApplicationSettings which the endpoints need.
type SettingsResolver interface {
	GetStoredData(ctx context.Context, requestIDs []string, impIDs []string, t timeout.Timeout) (*settings.StoredDataResult, error)
	GetAmpStoredData(ctx context.Context, requestIDs []string, impIDs []string, t timeout.Timeout) (*settings.StoredDataResult, error)
	GetAccountByID(ctx context.Context, accountID string, t timeout.Timeout) (*settings.Account, error)
	GetAdUnitConfigByID(ctx context.Context, configID string, t timeout.Timeout) (string, error)
}

type settingsEndpoint struct {
	resolver       SettingsResolver
	timeoutFactory *timeout.Factory
	defaultTimeout time.Duration
	metricsEngine  metrics.MetricsEngine
}

type storedDataResponse struct {
	Requests map[string]json.RawMessage `json:"requests"`
	Imps     map[string]json.RawMessage `json:"imps"`
	Errors   []string                   `json:"errors,omitempty"`
}

// NewStoredDataEndpoint implements /settings/stored-data.
//
// IDs are given as comma separated lists in the request-ids and imp-ids query params.
// If amp=1, request IDs are resolved against the AMP stored requests and imp-ids is ignored.
func NewStoredDataEndpoint(resolver SettingsResolver, timeoutFactory *timeout.Factory, defaultTimeout time.Duration, me metrics.MetricsEngine) httprouter.Handle {
	endpoint := &settingsEndpoint{
		resolver:       resolver,
		timeoutFactory: timeoutFactory,
		defaultTimeout: defaultTimeout,
		metricsEngine:  me,
	}
	return endpoint.handleStoredData
}

// NewAccountEndpoint implements /settings/accounts/:id.
func NewAccountEndpoint(resolver SettingsResolver, timeoutFactory *timeout.Factory, defaultTimeout time.Duration, me metrics.MetricsEngine) httprouter.Handle {
	endpoint := &settingsEndpoint{
		resolver:       resolver,
		timeoutFactory: timeoutFactory,
		defaultTimeout: defaultTimeout,
		metricsEngine:  me,
	}
	return endpoint.handleAccount
}

// NewAdUnitConfigEndpoint implements /settings/adunit-configs/:id. The stored config is returned as is.
func NewAdUnitConfigEndpoint(resolver SettingsResolver, timeoutFactory *timeout.Factory, defaultTimeout time.Duration, me metrics.MetricsEngine) httprouter.Handle {
	endpoint := &settingsEndpoint{
		resolver:       resolver,
		timeoutFactory: timeoutFactory,
		defaultTimeout: defaultTimeout,
		metricsEngine:  me,
	}
	return endpoint.handleAdUnitConfig
}

func (e *settingsEndpoint) handleStoredData(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeStoredData,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		e.metricsEngine.RecordRequest(labels)
		e.metricsEngine.RecordRequestTime(labels, time.Since(start))
	}()

	query := r.URL.Query()
	requestIDs := splitIDs(query.Get("request-ids"))
	impIDs := splitIDs(query.Get("imp-ids"))
	isAmp := query.Get("amp") == "1"
	if isAmp {
		impIDs = nil
	}
	if len(requestIDs) == 0 && len(impIDs) == 0 {
		labels.RequestStatus = metrics.RequestStatusBadInput
		writeError(w, http.StatusBadRequest, "request-ids or imp-ids must name at least one ID")
		return
	}

	t := e.timeoutFactory.Create(e.defaultTimeout)
	var result *settings.StoredDataResult
	var err error
	if isAmp {
		result, err = e.resolver.GetAmpStoredData(r.Context(), requestIDs, impIDs, t)
	} else {
		result, err = e.resolver.GetStoredData(r.Context(), requestIDs, impIDs, t)
	}
	if err != nil {
		labels.RequestStatus = writeLookupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storedDataResponse{
		Requests: asRawMessages(result.StoredIDToRequest),
		Imps:     asRawMessages(result.StoredIDToImp),
		Errors:   result.Errors,
	})
}

func (e *settingsEndpoint) handleAccount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeAccount,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		e.metricsEngine.RecordRequest(labels)
		e.metricsEngine.RecordRequestTime(labels, time.Since(start))
	}()

	accountID := ps.ByName("id")
	account, err := e.resolver.GetAccountByID(r.Context(), accountID, e.timeoutFactory.Create(e.defaultTimeout))
	if err != nil {
		labels.RequestStatus = writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (e *settingsEndpoint) handleAdUnitConfig(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start := time.Now()
	labels := metrics.Labels{
		RType:         metrics.ReqTypeAdUnitConfig,
		RequestStatus: metrics.RequestStatusOK,
	}
	defer func() {
		e.metricsEngine.RecordRequest(labels)
		e.metricsEngine.RecordRequestTime(labels, time.Since(start))
	}()

	config, err := e.resolver.GetAdUnitConfigByID(r.Context(), ps.ByName("id"), e.timeoutFactory.Create(e.defaultTimeout))
	if err != nil {
		labels.RequestStatus = writeLookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(config))
}

// writeLookupError maps a resolver error to a response, and returns the status to record.
func writeLookupError(w http.ResponseWriter, err error) metrics.RequestStatus {
	switch {
	case errortypes.IsTimeout(err):
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return metrics.RequestStatusTimeout
	case errortypes.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
		return metrics.RequestStatusNotFound
	default:
		glog.Errorf("Settings lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return metrics.RequestStatusErr
	}
}

func splitIDs(param string) []string {
	if param == "" {
		return nil
	}
	parts := strings.Split(param, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func asRawMessages(data map[string]string) map[string]json.RawMessage {
	raw := make(map[string]json.RawMessage, len(data))
	for id, value := range data {
		raw[id] = json.RawMessage(value)
	}
	return raw
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	response, err := json.Marshal(v)
	if err != nil {
		glog.Errorf("Failed to marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	fmt.Fprintln(w, msg)
}
