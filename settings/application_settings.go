package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"github.com/prebid/prebid-server-core/errortypes"
	"github.com/prebid/prebid-server-core/metrics"
	"github.com/prebid/prebid-server-core/timeout"
)

// ApplicationSettings resolves accounts, ad unit configs and stored data for a request,
// within that request's timeout budget.
//
// It is safe for concurrent use.
type ApplicationSettings struct {
	store           Store
	ampStore        Store
	accountDefaults []byte
	metricsEngine   metrics.MetricsEngine
}

// NewApplicationSettings builds the resolver on top of a store.
//
// AMP lookups use ampStore, or store if ampStore is nil.
// Fields set in accountDefaults are applied to every account which doesn't set them itself.
func NewApplicationSettings(store Store, ampStore Store, accountDefaults Account, metricsEngine metrics.MetricsEngine) (*ApplicationSettings, error) {
	defaults, err := json.Marshal(accountDefaults)
	if err != nil {
		return nil, fmt.Errorf("invalid account defaults: %v", err)
	}
	if ampStore == nil {
		ampStore = store
	}
	return &ApplicationSettings{
		store:           store,
		ampStore:        ampStore,
		accountDefaults: defaults,
		metricsEngine:   metricsEngine,
	}, nil
}

// GetStoredData looks up stored requests and stored imps by ID.
//
// IDs which can't be found are reported in the result's Errors, and never as an error return.
// The error return is reserved for store failures and expired timeouts.
func (s *ApplicationSettings) GetStoredData(ctx context.Context, requestIDs []string, impIDs []string, t timeout.Timeout) (*StoredDataResult, error) {
	return s.getStoredData(ctx, s.store, requestIDs, impIDs, t)
}

// GetAmpStoredData looks up the stored requests for an AMP request. AMP requests never use stored imps,
// so impIDs are ignored.
func (s *ApplicationSettings) GetAmpStoredData(ctx context.Context, requestIDs []string, impIDs []string, t timeout.Timeout) (*StoredDataResult, error) {
	return s.getStoredData(ctx, s.ampStore, requestIDs, nil, t)
}

func (s *ApplicationSettings) getStoredData(ctx context.Context, store Store, requestIDs []string, impIDs []string, t timeout.Timeout) (*StoredDataResult, error) {
	requestIDs = uniqueIDs(requestIDs)
	impIDs = uniqueIDs(impIDs)
	if len(requestIDs) == 0 && len(impIDs) == 0 {
		return &StoredDataResult{
			StoredIDToRequest: map[string]string{},
			StoredIDToImp:     map[string]string{},
		}, nil
	}
	if err := t.Check(); err != nil {
		return nil, err
	}

	ctx, cancel := t.Context(ctx)
	defer cancel()

	var requestData, impData map[string]string
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		requestData, err = s.fetchStoredData(groupCtx, store, RequestDataType, requestIDs)
		return
	})
	group.Go(func() (err error) {
		impData, err = s.fetchStoredData(groupCtx, store, ImpDataType, impIDs)
		return
	})
	if err := group.Wait(); err != nil {
		return nil, s.storeError(ctx, t, err)
	}
	if err := t.Check(); err != nil {
		return nil, err
	}

	result := &StoredDataResult{
		StoredIDToRequest: make(map[string]string, len(requestIDs)),
		StoredIDToImp:     make(map[string]string, len(impIDs)),
	}
	result.Errors = collectFound(result.StoredIDToRequest, RequestDataType, requestIDs, requestData, nil)
	result.Errors = collectFound(result.StoredIDToImp, ImpDataType, impIDs, impData, result.Errors)
	return result, nil
}

// GetAccountByID returns the account with the given ID, with the account defaults applied.
// An unknown account is an *errortypes.NotFound.
func (s *ApplicationSettings) GetAccountByID(ctx context.Context, accountID string, t timeout.Timeout) (*Account, error) {
	if err := t.Check(); err != nil {
		return nil, err
	}
	ctx, cancel := t.Context(ctx)
	defer cancel()

	start := time.Now()
	account, err := s.store.FetchAccount(ctx, accountID)
	s.metricsEngine.RecordStoredDataFetchTime(metrics.AccountDataType, time.Since(start))
	if err != nil {
		if errortypes.IsNotFound(err) {
			s.metricsEngine.RecordStoredDataLookup(metrics.AccountDataType, metrics.LookupMissing, 1)
			return nil, err
		}
		return nil, s.lookupError(ctx, t, metrics.AccountDataType, err)
	}
	s.metricsEngine.RecordStoredDataLookup(metrics.AccountDataType, metrics.LookupFound, 1)
	return s.applyAccountDefaults(account)
}

// GetAdUnitConfigByID returns the ad unit config with the given ID.
// An unknown config is an *errortypes.NotFound.
func (s *ApplicationSettings) GetAdUnitConfigByID(ctx context.Context, configID string, t timeout.Timeout) (string, error) {
	if err := t.Check(); err != nil {
		return "", err
	}
	ctx, cancel := t.Context(ctx)
	defer cancel()

	start := time.Now()
	config, err := s.store.FetchAdUnitConfig(ctx, configID)
	s.metricsEngine.RecordStoredDataFetchTime(metrics.AdUnitConfigDataType, time.Since(start))
	if err != nil {
		if errortypes.IsNotFound(err) {
			s.metricsEngine.RecordStoredDataLookup(metrics.AdUnitConfigDataType, metrics.LookupMissing, 1)
			return "", err
		}
		return "", s.lookupError(ctx, t, metrics.AdUnitConfigDataType, err)
	}
	s.metricsEngine.RecordStoredDataLookup(metrics.AdUnitConfigDataType, metrics.LookupFound, 1)
	return config, nil
}

func (s *ApplicationSettings) fetchStoredData(ctx context.Context, store Store, dataType StoredDataType, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	metricsType := metricsDataType(dataType)

	start := time.Now()
	data, err := store.FetchStoredData(ctx, dataType, ids)
	s.metricsEngine.RecordStoredDataFetchTime(metricsType, time.Since(start))
	if err != nil {
		return nil, &storedDataError{dataType: dataType, err: err}
	}

	found := 0
	for _, id := range ids {
		if _, ok := data[id]; ok {
			found++
		}
	}
	s.metricsEngine.RecordStoredDataLookup(metricsType, metrics.LookupFound, found)
	s.metricsEngine.RecordStoredDataLookup(metricsType, metrics.LookupMissing, len(ids)-found)
	return data, nil
}

func (s *ApplicationSettings) storeError(ctx context.Context, t timeout.Timeout, err error) error {
	dataType := metrics.RequestDataType
	if storeErr, ok := err.(*storedDataError); ok {
		dataType = metricsDataType(storeErr.dataType)
		err = storeErr.err
	}
	return s.lookupError(ctx, t, dataType, err)
}

// lookupError converts a store failure into the error returned to callers.
// Anything which failed because the budget ran out is a timeout, whatever the store said.
func (s *ApplicationSettings) lookupError(ctx context.Context, t timeout.Timeout, dataType metrics.StoredDataType, err error) error {
	if errortypes.IsTimeout(err) || ctx.Err() == context.DeadlineExceeded || err == context.DeadlineExceeded || t.Expired() {
		s.metricsEngine.RecordStoredDataError(metrics.StoredDataLabels{
			DataType: dataType,
			Error:    metrics.StoredDataErrorTimeout,
		})
		return &errortypes.Timeout{Message: fmt.Sprintf("Timed out fetching %s data: %v", dataType, err)}
	}

	errorType := metrics.StoredDataErrorUndefined
	if _, ok := err.(*errortypes.BadServerResponse); ok {
		errorType = metrics.StoredDataErrorNetwork
	}
	s.metricsEngine.RecordStoredDataError(metrics.StoredDataLabels{
		DataType: dataType,
		Error:    errorType,
	})
	glog.Errorf("Error fetching %s data: %v", dataType, err)
	return err
}

func (s *ApplicationSettings) applyAccountDefaults(account *Account) (*Account, error) {
	accountJSON, err := json.Marshal(account)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(s.accountDefaults, accountJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to apply account defaults to account %s: %v", account.ID, err)
	}
	result := &Account{}
	if err := json.Unmarshal(merged, result); err != nil {
		return nil, fmt.Errorf("failed to apply account defaults to account %s: %v", account.ID, err)
	}
	return result, nil
}

// storedDataError remembers which lookup failed when both run in the same errgroup.
type storedDataError struct {
	dataType StoredDataType
	err      error
}

func (e *storedDataError) Error() string {
	return e.err.Error()
}

func metricsDataType(dataType StoredDataType) metrics.StoredDataType {
	if dataType == ImpDataType {
		return metrics.ImpDataType
	}
	return metrics.RequestDataType
}

// collectFound copies the data for ids into dst, and appends an error message for every id which wasn't found.
func collectFound(dst map[string]string, dataType StoredDataType, ids []string, data map[string]string, errs []string) []string {
	for _, id := range ids {
		if value, ok := data[id]; ok {
			dst[id] = value
		} else {
			errs = append(errs, fmt.Sprintf("No stored %s found for id: %s", dataType, id))
		}
	}
	return errs
}

func uniqueIDs(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}
