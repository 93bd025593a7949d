package config

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// Settings configures where accounts, ad unit configs and stored data are loaded from.
//
// Every enabled backend is used. They are asked in the order filesystem, database, http.
type Settings struct {
	Files    FileSettings     `mapstructure:"filesystem"`
	Database DatabaseSettings `mapstructure:"database"`
	HTTP     HTTPSettings     `mapstructure:"http"`
	// InMemoryCache adds a cache in front of the database and http backends.
	InMemoryCache InMemoryCache `mapstructure:"in_memory_cache"`
}

type FileSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// SettingsFilename is a YAML document listing the accounts and ad unit configs.
	SettingsFilename  string `mapstructure:"settings_filename"`
	StoredRequestsDir string `mapstructure:"stored_requests_dir"`
	StoredImpsDir     string `mapstructure:"stored_imps_dir"`
}

// DatabaseSettings configures the Postgres connection for the settings store
type DatabaseSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Database string `mapstructure:"dbname"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	// StoredDataQuery is the Postgres Query which can be used to fetch stored data from the database.
	// It is a Template, rather than a full Query, because a single lookup may reference multiple IDs.
	//
	// In the simplest case, this could be something like:
	//   SELECT id, requestData, 'request' as type
	//     FROM stored_requests
	//     WHERE id in %REQUEST_ID_LIST%
	//     UNION ALL
	//   SELECT id, impData, 'imp' as type
	//     FROM stored_imps
	//     WHERE id in %IMP_ID_LIST%
	//
	// The MakeQuery function will transform this query into:
	//   SELECT id, requestData, 'request' as type
	//     FROM stored_requests
	//     WHERE id in ($1)
	//     UNION ALL
	//   SELECT id, impData, 'imp' as type
	//     FROM stored_imps
	//     WHERE id in ($2, $3, $4, ...)
	//
	// ... where the number of "$x" args depends on how many IDs are being looked up.
	StoredDataQuery string `mapstructure:"stored_data_query"`

	// AmpStoredDataQuery is the same as StoredDataQuery, but used for AMP lookups.
	AmpStoredDataQuery string `mapstructure:"amp_stored_data_query"`
}

type HTTPSettings struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	AmpEndpoint string `mapstructure:"amp_endpoint"`
}

type InMemoryCache struct {
	Enabled bool `mapstructure:"enabled"`
	// TTL is the maximum number of seconds that an unused value will stay in the cache.
	// TTL <= 0 can be used for "no ttl". Elements will still be evicted based on the Size.
	TTL int `mapstructure:"ttl_seconds"`
	// RequestCacheSize is the max number of bytes allowed in the cache for Stored Requests.
	RequestCacheSize int `mapstructure:"request_cache_size_bytes"`
	// ImpCacheSize is the max number of bytes allowed in the cache for Stored Imps.
	ImpCacheSize          int `mapstructure:"imp_cache_size_bytes"`
	AccountCacheSize      int `mapstructure:"account_cache_size_bytes"`
	AdUnitConfigCacheSize int `mapstructure:"adunit_config_cache_size_bytes"`
}

func (cfg *Settings) validate(errs configErrors) configErrors {
	if !cfg.Files.Enabled && !cfg.Database.Enabled && !cfg.HTTP.Enabled {
		errs = append(errs, fmt.Errorf("at least one of settings.filesystem, settings.database or settings.http must be enabled"))
	}
	if cfg.Files.Enabled {
		if cfg.Files.SettingsFilename == "" {
			errs = append(errs, fmt.Errorf("settings.filesystem.settings_filename is required when the filesystem backend is enabled"))
		}
		if cfg.Files.StoredRequestsDir == "" || cfg.Files.StoredImpsDir == "" {
			errs = append(errs, fmt.Errorf("settings.filesystem.stored_requests_dir and settings.filesystem.stored_imps_dir are required when the filesystem backend is enabled"))
		}
	}
	if cfg.Database.Enabled {
		errs = cfg.Database.validate(errs)
	}
	if cfg.HTTP.Enabled {
		if _, err := url.ParseRequestURI(cfg.HTTP.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("settings.http.endpoint %q is not a valid URL: %v", cfg.HTTP.Endpoint, err))
		}
		if cfg.HTTP.AmpEndpoint != "" {
			if _, err := url.ParseRequestURI(cfg.HTTP.AmpEndpoint); err != nil {
				errs = append(errs, fmt.Errorf("settings.http.amp_endpoint %q is not a valid URL: %v", cfg.HTTP.AmpEndpoint, err))
			}
		}
	}
	if cfg.InMemoryCache.Enabled {
		c := cfg.InMemoryCache
		if c.RequestCacheSize < 0 || c.ImpCacheSize < 0 || c.AccountCacheSize < 0 || c.AdUnitConfigCacheSize < 0 {
			errs = append(errs, fmt.Errorf("settings.in_memory_cache sizes must not be negative"))
		} else if c.TTL > 0 && (c.RequestCacheSize == 0 || c.ImpCacheSize == 0 || c.AccountCacheSize == 0 || c.AdUnitConfigCacheSize == 0) {
			errs = append(errs, fmt.Errorf("settings.in_memory_cache.ttl_seconds can only be used with bounded caches. Set every cache size"))
		}
	}
	return errs
}

func (cfg *DatabaseSettings) validate(errs configErrors) configErrors {
	if cfg.Database == "" {
		errs = append(errs, fmt.Errorf("settings.database.dbname is required when the database backend is enabled"))
	}
	if cfg.StoredDataQuery == "" {
		errs = append(errs, fmt.Errorf("settings.database.stored_data_query is required when the database backend is enabled"))
	} else if !strings.Contains(cfg.StoredDataQuery, "%REQUEST_ID_LIST%") || !strings.Contains(cfg.StoredDataQuery, "%IMP_ID_LIST%") {
		errs = append(errs, fmt.Errorf("settings.database.stored_data_query must contain both %%REQUEST_ID_LIST%% and %%IMP_ID_LIST%%"))
	}
	return errs
}

// ConnString returns the lib/pq connection string for the database.
func (cfg *DatabaseSettings) ConnString() string {
	buffer := bytes.NewBuffer(nil)

	if cfg.Host != "" {
		buffer.WriteString("host=")
		buffer.WriteString(cfg.Host)
		buffer.WriteString(" ")
	}

	if cfg.Port > 0 {
		buffer.WriteString("port=")
		buffer.WriteString(strconv.Itoa(cfg.Port))
		buffer.WriteString(" ")
	}

	if cfg.Username != "" {
		buffer.WriteString("user=")
		buffer.WriteString(cfg.Username)
		buffer.WriteString(" ")
	}

	if cfg.Password != "" {
		buffer.WriteString("password=")
		buffer.WriteString(cfg.Password)
		buffer.WriteString(" ")
	}

	if cfg.Database != "" {
		buffer.WriteString("dbname=")
		buffer.WriteString(cfg.Database)
		buffer.WriteString(" ")
	}

	buffer.WriteString("sslmode=disable")
	return buffer.String()
}

// MakeQuery builds a query which can fetch numReqs Stored Requests and numImps Stored Imps.
// See the docs on DatabaseSettings.StoredDataQuery for a description of how it works.
func (cfg *DatabaseSettings) MakeQuery(numReqs int, numImps int) (query string) {
	return resolve(cfg.StoredDataQuery, numReqs, numImps)
}

// MakeAmpQuery is the equivalent of MakeQuery() for AMP. It falls back to the regular query.
func (cfg *DatabaseSettings) MakeAmpQuery(numReqs int, numImps int) string {
	if cfg.AmpStoredDataQuery == "" {
		return cfg.MakeQuery(numReqs, numImps)
	}
	return resolve(cfg.AmpStoredDataQuery, numReqs, numImps)
}

func resolve(template string, numReqs int, numImps int) (query string) {
	numReqs = ensureNonNegative("Request", numReqs)
	numImps = ensureNonNegative("Imp", numImps)

	query = strings.Replace(template, "%REQUEST_ID_LIST%", makeIdList(0, numReqs), -1)
	query = strings.Replace(query, "%IMP_ID_LIST%", makeIdList(numReqs, numImps), -1)
	return
}

func ensureNonNegative(storedThing string, num int) int {
	if num < 0 {
		glog.Errorf("Can't build a SQL query for %d Stored %ss.", num, storedThing)
		return 0
	}
	return num
}

func makeIdList(numSoFar int, numArgs int) string {
	// Any empty list like "()" is illegal in Postgres. A (NULL) is the next best thing,
	// though, since `id IN (NULL)` is valid for all "id" column types, and evaluates to an empty set.
	if numArgs == 0 {
		return "(NULL)"
	}

	final := bytes.NewBuffer(make([]byte, 0, 2+4*numArgs))
	final.WriteString("(")
	for i := numSoFar + 1; i < numSoFar+numArgs; i++ {
		final.WriteString("$")
		final.WriteString(strconv.Itoa(i))
		final.WriteString(", ")
	}
	final.WriteString("$")
	final.WriteString(strconv.Itoa(numSoFar + numArgs))
	final.WriteString(")")

	return final.String()
}
