package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/prebid/prebid-server-core/openrtb_ext"
)

// Configuration
type Configuration struct {
	ExternalURL string `mapstructure:"external_url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AdminPort   int    `mapstructure:"admin_port"`
	EnableGzip  bool   `mapstructure:"enable_gzip"`
	// StatusResponse is the string which will be returned by the /status endpoint when things are OK.
	// If empty, it will return a 204 with no content.
	StatusResponse string `mapstructure:"status_response"`
	// DefaultTimeout is the budget, in milliseconds, given to a settings lookup when the caller doesn't ask for one.
	DefaultTimeout  uint64          `mapstructure:"default_timeout_ms"`
	Settings        Settings        `mapstructure:"settings"`
	AccountDefaults AccountDefaults `mapstructure:"account_defaults"`
	Targeting       Targeting       `mapstructure:"targeting"`
	HealthCheck     HealthCheck     `mapstructure:"health_check"`
	Metrics         Metrics         `mapstructure:"metrics"`
}

// AccountDefaults are applied to every account which doesn't set the field itself.
type AccountDefaults struct {
	PriceGranularity string `mapstructure:"price_granularity"`
	BannerCacheTTL   *int   `mapstructure:"banner_cache_ttl"`
	VideoCacheTTL    *int   `mapstructure:"video_cache_ttl"`
	EventsEnabled    *bool  `mapstructure:"events_enabled"`
}

// Targeting configures the targeting keywords made when a request doesn't say otherwise.
type Targeting struct {
	PriceGranularity string `mapstructure:"price_granularity"`
	// LengthMax truncates bidder specific targeting keys. 0 means no limit.
	LengthMax int `mapstructure:"lengthmax"`
}

type HealthCheck struct {
	// DatabasePeriod is how often, in milliseconds, the database health is probed.
	DatabasePeriod int `mapstructure:"database_period_ms"`
}

type Metrics struct {
	Prometheus PrometheusMetrics `mapstructure:"prometheus"`
	GoMetrics  GoMetrics         `mapstructure:"go_metrics"`
}

type PrometheusMetrics struct {
	// Port is where the /metrics endpoint is served. 0 disables Prometheus.
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	// TimeoutMillisRaw bounds a single scrape of the /metrics endpoint.
	TimeoutMillisRaw int `mapstructure:"timeout_ms"`
}

func (cfg *PrometheusMetrics) Timeout() time.Duration {
	return time.Duration(cfg.TimeoutMillisRaw) * time.Millisecond
}

type GoMetrics struct {
	Enabled bool `mapstructure:"enabled"`
}

type configErrors []error

func (c configErrors) Error() string {
	if len(c) == 0 {
		return ""
	}
	buf := bytes.Buffer{}
	buf.WriteString("validation errors are:\n\n")
	for _, err := range c {
		buf.WriteString(fmt.Sprintf("  %s\n", err.Error()))
	}
	return buf.String()
}

func (cfg *Configuration) validate() configErrors {
	var errs configErrors
	if cfg.Port <= 0 {
		errs = append(errs, fmt.Errorf("port must be positive. Got %d", cfg.Port))
	}
	if cfg.AdminPort <= 0 {
		errs = append(errs, fmt.Errorf("admin_port must be positive. Got %d", cfg.AdminPort))
	}
	if cfg.DefaultTimeout == 0 {
		errs = append(errs, errors.New("default_timeout_ms must be positive"))
	}
	if cfg.ExternalURL != "" {
		if _, err := url.Parse(cfg.ExternalURL); err != nil {
			errs = append(errs, fmt.Errorf("external_url %q is not a valid URL: %v", cfg.ExternalURL, err))
		}
	}
	errs = cfg.Settings.validate(errs)
	errs = cfg.AccountDefaults.validate(errs)
	errs = cfg.Targeting.validate(errs)
	if cfg.HealthCheck.DatabasePeriod < 0 {
		errs = append(errs, fmt.Errorf("health_check.database_period_ms must not be negative. Got %d", cfg.HealthCheck.DatabasePeriod))
	}
	errs = cfg.Metrics.validate(cfg, errs)
	return errs
}

func (cfg *AccountDefaults) validate(errs configErrors) configErrors {
	if cfg.PriceGranularity != "" && !openrtb_ext.IsPriceGranularityName(cfg.PriceGranularity) {
		errs = append(errs, fmt.Errorf("account_defaults.price_granularity %q is not a known price granularity", cfg.PriceGranularity))
	}
	if cfg.BannerCacheTTL != nil && *cfg.BannerCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("account_defaults.banner_cache_ttl must not be negative. Got %d", *cfg.BannerCacheTTL))
	}
	if cfg.VideoCacheTTL != nil && *cfg.VideoCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("account_defaults.video_cache_ttl must not be negative. Got %d", *cfg.VideoCacheTTL))
	}
	return errs
}

func (cfg *Targeting) validate(errs configErrors) configErrors {
	if !openrtb_ext.IsPriceGranularityName(cfg.PriceGranularity) {
		errs = append(errs, fmt.Errorf("targeting.price_granularity %q must be one of %s", cfg.PriceGranularity, strings.Join(openrtb_ext.PriceGranularityNames(), ", ")))
	}
	if cfg.LengthMax < 0 {
		errs = append(errs, fmt.Errorf("targeting.lengthmax must not be negative. Got %d", cfg.LengthMax))
	}
	return errs
}

func (cfg *Metrics) validate(parent *Configuration, errs configErrors) configErrors {
	port := cfg.Prometheus.Port
	if port < 0 {
		errs = append(errs, fmt.Errorf("metrics.prometheus.port must not be negative. Got %d", port))
	}
	if port > 0 && (port == parent.Port || port == parent.AdminPort) {
		errs = append(errs, fmt.Errorf("metrics.prometheus.port %d is already used by another server", port))
	}
	return errs
}

// DefaultTimeoutDuration returns the default settings lookup budget.
func (cfg *Configuration) DefaultTimeoutDuration() time.Duration {
	return time.Duration(cfg.DefaultTimeout) * time.Millisecond
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	glog.Info("Logging the resolved configuration:")
	logGeneral(c)
	if errs := c.validate(); len(errs) > 0 {
		return &c, errs
	}
	return &c, nil
}

func logGeneral(c Configuration) {
	glog.Infof("host=%s port=%d admin_port=%d default_timeout_ms=%d", c.Host, c.Port, c.AdminPort, c.DefaultTimeout)
	glog.Infof("settings.filesystem.enabled=%t settings.database.enabled=%t settings.http.enabled=%t",
		c.Settings.Files.Enabled, c.Settings.Database.Enabled, c.Settings.HTTP.Enabled)
	glog.Infof("targeting.price_granularity=%s targeting.lengthmax=%d", c.Targeting.PriceGranularity, c.Targeting.LengthMax)
}

// SetupViper sets the defaults for every configuration key, reads the config file if there is one,
// and lets environment variables prefixed with PBS_ override it.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("enable_gzip", false)
	v.SetDefault("status_response", "")
	v.SetDefault("default_timeout_ms", 200)

	v.SetDefault("settings.filesystem.enabled", false)
	v.SetDefault("settings.filesystem.settings_filename", "")
	v.SetDefault("settings.filesystem.stored_requests_dir", "")
	v.SetDefault("settings.filesystem.stored_imps_dir", "")
	v.SetDefault("settings.database.enabled", false)
	v.SetDefault("settings.database.host", "")
	v.SetDefault("settings.database.port", 5432)
	v.SetDefault("settings.database.dbname", "")
	v.SetDefault("settings.database.user", "")
	v.SetDefault("settings.database.password", "")
	v.SetDefault("settings.database.stored_data_query", "")
	v.SetDefault("settings.database.amp_stored_data_query", "")
	v.SetDefault("settings.http.enabled", false)
	v.SetDefault("settings.http.endpoint", "")
	v.SetDefault("settings.http.amp_endpoint", "")
	v.SetDefault("settings.in_memory_cache.enabled", false)
	v.SetDefault("settings.in_memory_cache.ttl_seconds", 0)
	v.SetDefault("settings.in_memory_cache.request_cache_size_bytes", 0)
	v.SetDefault("settings.in_memory_cache.imp_cache_size_bytes", 0)
	v.SetDefault("settings.in_memory_cache.account_cache_size_bytes", 0)
	v.SetDefault("settings.in_memory_cache.adunit_config_cache_size_bytes", 0)

	v.SetDefault("account_defaults.price_granularity", "")

	v.SetDefault("targeting.price_granularity", openrtb_ext.PriceGranularityMedium)
	v.SetDefault("targeting.lengthmax", 0)

	v.SetDefault("health_check.database_period_ms", 0)

	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")
	v.SetDefault("metrics.prometheus.timeout_ms", 10000)
	v.SetDefault("metrics.go_metrics.enabled", false)

	// Set environment variable support:
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("PBS")
	v.AutomaticEnv()
	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("Could not read config file %s: %v", filename, err)
		}
	}
}
