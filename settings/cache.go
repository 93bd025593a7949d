package settings

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/prebid/prebid-server-core/metrics"
)

// Cache is an intermediate layer which can be used to create more complex Stores by composition.
// To add a Cache layer in front of a Store, see WithCache()
type Cache struct {
	Requests      DataCache
	Imps          DataCache
	Accounts      DataCache
	AdUnitConfigs DataCache
}

// DataCache holds one kind of data, keyed by ID.
// Implementations must be safe for concurrent access by multiple goroutines.
type DataCache interface {
	// Get works much like Store.FetchStoredData, with a few exceptions:
	//
	// 1. Any (actionable) errors should be logged by the implementation, rather than returned.
	// 2. The returned map _may_ be written to.
	// 3. The returned map must _not_ contain keys unless they were present in the argument ID list.
	Get(ctx context.Context, ids []string) (data map[string]string)

	// Invalidate will ensure that all values associated with the given IDs
	// are no longer returned by the cache until new values are saved via Save
	Invalidate(ctx context.Context, ids []string)

	// Save will add or overwrite the data in the cache at the given keys
	Save(ctx context.Context, data map[string]string)
}

type storeWithCache struct {
	store         Store
	cache         Cache
	metricsEngine metrics.MetricsEngine
}

// WithCache returns a Store which uses the given Cache before delegating to the original.
// Only data which was found is cached. Lookups of unknown IDs always reach the store.
func WithCache(store Store, cache Cache, metricsEngine metrics.MetricsEngine) Store {
	return &storeWithCache{
		store:         store,
		cache:         cache,
		metricsEngine: metricsEngine,
	}
}

func (s *storeWithCache) FetchStoredData(ctx context.Context, dataType StoredDataType, ids []string) (map[string]string, error) {
	cache := s.cache.Requests
	if dataType == ImpDataType {
		cache = s.cache.Imps
	}

	data := cache.Get(ctx, ids)
	leftovers := findLeftovers(ids, data)

	metricsType := metricsDataType(dataType)
	s.metricsEngine.RecordSettingsCacheResult(metricsType, metrics.CacheHit, len(ids)-len(leftovers))
	s.metricsEngine.RecordSettingsCacheResult(metricsType, metrics.CacheMiss, len(leftovers))

	if len(leftovers) == 0 {
		return data, nil
	}

	fetched, err := s.store.FetchStoredData(ctx, dataType, leftovers)
	if err != nil {
		return nil, err
	}
	cache.Save(ctx, fetched)
	return mergeData(data, fetched), nil
}

func (s *storeWithCache) FetchAccount(ctx context.Context, accountID string) (*Account, error) {
	if cached, ok := s.cache.Accounts.Get(ctx, []string{accountID})[accountID]; ok {
		account := &Account{}
		if err := json.Unmarshal([]byte(cached), account); err == nil {
			s.metricsEngine.RecordSettingsCacheResult(metrics.AccountDataType, metrics.CacheHit, 1)
			return account, nil
		}
		glog.Errorf("Discarding unreadable cached account %s", accountID)
		s.cache.Accounts.Invalidate(ctx, []string{accountID})
	}
	s.metricsEngine.RecordSettingsCacheResult(metrics.AccountDataType, metrics.CacheMiss, 1)

	account, err := s.store.FetchAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if accountJSON, err := json.Marshal(account); err == nil {
		s.cache.Accounts.Save(ctx, map[string]string{accountID: string(accountJSON)})
	}
	return account, nil
}

func (s *storeWithCache) FetchAdUnitConfig(ctx context.Context, configID string) (string, error) {
	if config, ok := s.cache.AdUnitConfigs.Get(ctx, []string{configID})[configID]; ok {
		s.metricsEngine.RecordSettingsCacheResult(metrics.AdUnitConfigDataType, metrics.CacheHit, 1)
		return config, nil
	}
	s.metricsEngine.RecordSettingsCacheResult(metrics.AdUnitConfigDataType, metrics.CacheMiss, 1)

	config, err := s.store.FetchAdUnitConfig(ctx, configID)
	if err != nil {
		return "", err
	}
	s.cache.AdUnitConfigs.Save(ctx, map[string]string{configID: config})
	return config, nil
}

func findLeftovers(ids []string, data map[string]string) (leftovers []string) {
	leftovers = make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := data[id]; !ok {
			leftovers = append(leftovers, id)
		}
	}
	return
}

func mergeData(cachedData map[string]string, fetchedData map[string]string) (mergedData map[string]string) {
	mergedData = cachedData
	if mergedData == nil {
		mergedData = fetchedData
	} else {
		for key, value := range fetchedData {
			mergedData[key] = value
		}
	}

	return
}
