package memory

import (
	"context"
	"sync"

	"github.com/coocood/freecache"
	"github.com/golang/glog"

	"github.com/prebid/prebid-server-core/config"
	"github.com/prebid/prebid-server-core/settings"
)

// NewCache returns an in-memory Cache for every kind of settings data.
//
// Each data type gets its own cache. A cache whose size is zero is unbounded.
func NewCache(cfg *config.InMemoryCache) settings.Cache {
	return settings.Cache{
		Requests:      NewDataCache(cfg.RequestCacheSize, cfg.TTL, "Request"),
		Imps:          NewDataCache(cfg.ImpCacheSize, cfg.TTL, "Imp"),
		Accounts:      NewDataCache(cfg.AccountCacheSize, cfg.TTL, "Account"),
		AdUnitConfigs: NewDataCache(cfg.AdUnitConfigCacheSize, cfg.TTL, "AdUnitConfig"),
	}
}

// NewDataCache returns an in-memory DataCache.
//
// If size > 0, it is an LRU cache which holds at most size bytes, and whose entries expire after ttl seconds.
// A ttl <= 0 means entries never expire.
// Otherwise the cache is unbounded and entries never expire.
func NewDataCache(size int, ttl int, dataType string) settings.DataCache {
	if ttl > 0 && size <= 0 {
		glog.Fatalf("No in-memory %s cache can have a finite TTL but unbounded size. Config validation should have caught this. Failing fast because something is buggy.", dataType)
	}
	if size > 0 {
		glog.Infof("Using a %s in-memory cache. Max size: %d bytes. TTL: %d seconds.", dataType, size, ttl)
		if ttl < 0 {
			ttl = 0
		}
		return &cache{
			dataType: dataType,
			cache: &lruCache{
				Cache:      freecache.NewCache(size),
				ttlSeconds: ttl,
			},
		}
	}
	glog.Infof("Using an unbounded %s in-memory cache.", dataType)
	return &cache{
		dataType: dataType,
		cache:    &syncMap{&sync.Map{}},
	}
}

type cache struct {
	dataType string
	cache    mapLike
}

func (c *cache) Get(ctx context.Context, ids []string) (data map[string]string) {
	data = make(map[string]string, len(ids))
	for _, id := range ids {
		if val, ok := c.cache.Get(id); ok {
			data[id] = val
		}
	}
	return
}

func (c *cache) Save(ctx context.Context, data map[string]string) {
	for id, val := range data {
		c.cache.Set(id, val)
	}
}

func (c *cache) Invalidate(ctx context.Context, ids []string) {
	for _, id := range ids {
		c.cache.Delete(id)
	}
}

// mapLike is the set of operations both the bounded and unbounded caches support.
type mapLike interface {
	Get(id string) (string, bool)
	Set(id string, value string)
	Delete(id string)
}

type syncMap struct {
	m *sync.Map
}

func (m *syncMap) Get(id string) (string, bool) {
	val, ok := m.m.Load(id)
	if !ok {
		return "", false
	}
	return val.(string), true
}

func (m *syncMap) Set(id string, value string) {
	m.m.Store(id, value)
}

func (m *syncMap) Delete(id string) {
	m.m.Delete(id)
}

type lruCache struct {
	*freecache.Cache
	ttlSeconds int
}

func (m *lruCache) Get(id string) (string, bool) {
	val, err := m.Cache.Get([]byte(id))
	if err == nil {
		return string(val), true
	}
	if err != freecache.ErrNotFound {
		glog.Errorf("unexpected error from freecache: %v", err)
	}
	return "", false
}

func (m *lruCache) Set(id string, value string) {
	if err := m.Cache.Set([]byte(id), []byte(value), m.ttlSeconds); err != nil {
		glog.Errorf("error saving value in freecache: %v", err)
	}
}

func (m *lruCache) Delete(id string) {
	m.Cache.Del([]byte(id))
}
