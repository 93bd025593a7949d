package config

import (
	"database/sql"
	"net/http"

	"github.com/golang/glog"

	"github.com/prebid/prebid-server-core/config"
	"github.com/prebid/prebid-server-core/metrics"
	"github.com/prebid/prebid-server-core/settings"
	"github.com/prebid/prebid-server-core/settings/backends/db_settings"
	"github.com/prebid/prebid-server-core/settings/backends/empty_settings"
	"github.com/prebid/prebid-server-core/settings/backends/file_settings"
	"github.com/prebid/prebid-server-core/settings/backends/http_settings"
	"github.com/prebid/prebid-server-core/settings/caches/memory"
)

// NewApplicationSettings returns three things:
//
// 1. The resolver which serves accounts, ad unit configs and stored data.
// 2. A DB connection, if one was created. This may be nil.
// 3. A function which should be called on shutdown for graceful cleanups.
//
// If any errors occur, the program will exit with an error message.
// It probably means you have a bad config or networking issue.
func NewApplicationSettings(cfg *config.Configuration, metricsEngine metrics.MetricsEngine, client *http.Client) (appSettings *settings.ApplicationSettings, db *sql.DB, shutdown func()) {
	if cfg.Settings.Database.Enabled {
		db = newPostgresDB(cfg.Settings.Database)
	}

	store, ampStore := newStores(&cfg.Settings, metricsEngine, client, db)

	appSettings, err := settings.NewApplicationSettings(store, ampStore, accountDefaults(&cfg.AccountDefaults), metricsEngine)
	if err != nil {
		glog.Fatalf("Failed to build application settings: %v", err)
	}

	shutdown = func() {
		if db != nil {
			if err := db.Close(); err != nil {
				glog.Errorf("Error closing DB connection: %v", err)
			}
		}
	}
	return
}

// newStores builds the regular and the AMP store. Both chains share one filesystem snapshot.
func newStores(cfg *config.Settings, metricsEngine metrics.MetricsEngine, client *http.Client, db *sql.DB) (store settings.Store, ampStore settings.Store) {
	var files settings.Store
	if cfg.Files.Enabled {
		files = newFilesystem(&cfg.Files)
	}
	store = newStore(cfg, metricsEngine, client, db, files, false)
	ampStore = newStore(cfg, metricsEngine, client, db, files, true)
	return
}

// newStore builds the chain of enabled backends. The filesystem backend is already in memory,
// so only the remote backends sit behind the cache.
func newStore(cfg *config.Settings, metricsEngine metrics.MetricsEngine, client *http.Client, db *sql.DB, files settings.Store, amp bool) settings.Store {
	stores := make(settings.CompositeStore, 0, 2)
	if files != nil {
		stores = append(stores, files)
	}

	remote := make(settings.CompositeStore, 0, 2)
	if cfg.Database.Enabled && db != nil {
		queryMaker := cfg.Database.MakeQuery
		if amp {
			queryMaker = cfg.Database.MakeAmpQuery
		}
		glog.Infof("Loading settings via Postgres.\nQuery: %s", queryMaker(1, 1))
		remote = append(remote, db_settings.NewDBSettings(db, queryMaker))
	}
	if cfg.HTTP.Enabled {
		endpoint := cfg.HTTP.Endpoint
		if amp && cfg.HTTP.AmpEndpoint != "" {
			endpoint = cfg.HTTP.AmpEndpoint
		}
		glog.Infof("Loading settings via HTTP. endpoint=%s", endpoint)
		remote = append(remote, http_settings.NewHTTPSettings(client, endpoint))
	}
	if len(remote) > 0 {
		var remoteStore settings.Store = consolidate(remote)
		if cfg.InMemoryCache.Enabled {
			remoteStore = settings.WithCache(remoteStore, memory.NewCache(&cfg.InMemoryCache), metricsEngine)
		}
		stores = append(stores, remoteStore)
	}
	return consolidate(stores)
}

func newFilesystem(cfg *config.FileSettings) settings.Store {
	glog.Infof("Loading settings from filesystem. settings=%s, requests=%s, imps=%s", cfg.SettingsFilename, cfg.StoredRequestsDir, cfg.StoredImpsDir)
	store, err := file_settings.New(cfg.SettingsFilename, cfg.StoredRequestsDir, cfg.StoredImpsDir)
	if err != nil {
		glog.Fatalf("Failed to load settings from the filesystem: %v", err)
	}
	return store
}

func newPostgresDB(cfg config.DatabaseSettings) *sql.DB {
	glog.Infof("Connecting to Postgres for settings. DB=%s, host=%s, port=%d, user=%s",
		cfg.Database,
		cfg.Host,
		cfg.Port,
		cfg.Username)
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		glog.Fatalf("Failed to open postgres connection: %v", err)
	}
	if err := db.Ping(); err != nil {
		glog.Fatalf("Failed to ping postgres: %v", err)
	}
	return db
}

func accountDefaults(cfg *config.AccountDefaults) settings.Account {
	return settings.Account{
		PriceGranularity: cfg.PriceGranularity,
		BannerCacheTTL:   cfg.BannerCacheTTL,
		VideoCacheTTL:    cfg.VideoCacheTTL,
		EventsEnabled:    cfg.EventsEnabled,
	}
}

// consolidate returns a single Store from a list of stores of any size.
func consolidate(stores settings.CompositeStore) settings.Store {
	switch len(stores) {
	case 0:
		glog.Warning("No settings backend configured. Every account, ad unit config and stored data lookup will miss. If you need them, check your app config")
		return empty_settings.EmptySettings{}
	case 1:
		return stores[0]
	default:
		return stores
	}
}
