package router

import (
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"
	_ "github.com/lib/pq"
	"github.com/rs/cors"

	"github.com/prebid/prebid-server-core/config"
	"github.com/prebid/prebid-server-core/endpoints"
	"github.com/prebid/prebid-server-core/health"
	metricsConf "github.com/prebid/prebid-server-core/metrics/config"
	settingsConf "github.com/prebid/prebid-server-core/settings/config"
	"github.com/prebid/prebid-server-core/timeout"
)

type NoCache struct {
	Handler http.Handler
}

func (m NoCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Add("Pragma", "no-cache")
	w.Header().Add("Expires", "0")
	m.Handler.ServeHTTP(w, r)
}

type Router struct {
	*httprouter.Router
	MetricsEngine *metricsConf.DetailedMetricsEngine
	Shutdown      func()
}

// New builds every dependency the endpoints need from the configuration, and routes them.
// Misconfigured backends end the process, so any error returned here is recoverable by the caller.
func New(cfg *config.Configuration, revision string) (r *Router, err error) {
	r = &Router{
		Router: httprouter.New(),
	}

	settingsHTTPClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        400,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}

	r.MetricsEngine = metricsConf.NewMetricsEngine(cfg)
	appSettings, db, shutdownSettings := settingsConf.NewApplicationSettings(cfg, r.MetricsEngine, settingsHTTPClient)

	var checkers []health.Checker
	var stopCheckers []func()
	if db != nil && cfg.HealthCheck.DatabasePeriod > 0 {
		dbChecker := health.NewDatabaseChecker(db, time.Duration(cfg.HealthCheck.DatabasePeriod)*time.Millisecond, nil)
		dbChecker.Start()
		checkers = append(checkers, dbChecker)
		stopCheckers = append(stopCheckers, dbChecker.Stop)
	}

	r.Shutdown = func() {
		for _, stop := range stopCheckers {
			stop()
		}
		shutdownSettings()
	}

	timeoutFactory := timeout.NewFactory(nil)
	defaultTimeout := cfg.DefaultTimeoutDuration()

	r.GET("/status", endpoints.NewStatusEndpoint(cfg.StatusResponse))
	r.GET("/version", endpoints.NewVersionEndpoint(version, revision))
	r.GET("/health", endpoints.NewHealthEndpoint(checkers))
	r.GET("/settings/stored-data", endpoints.NewStoredDataEndpoint(appSettings, timeoutFactory, defaultTimeout, r.MetricsEngine))
	r.GET("/settings/accounts/:id", endpoints.NewAccountEndpoint(appSettings, timeoutFactory, defaultTimeout, r.MetricsEngine))
	r.GET("/settings/adunit-configs/:id", endpoints.NewAdUnitConfigEndpoint(appSettings, timeoutFactory, defaultTimeout, r.MetricsEngine))
	r.POST("/targeting", endpoints.NewTargetingEndpoint(appSettings, cfg.Targeting, timeoutFactory, defaultTimeout, r.MetricsEngine))

	glog.Infof("Routes ready. Default settings timeout: %v", defaultTimeout)
	return r, nil
}

// version is the release this binary was built from. It may be set with -ldflags.
var version string

// SupportCORS wraps the handler so that browsers may call it from any origin.
func SupportCORS(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowCredentials: true,
		AllowOriginFunc: func(string) bool {
			return true
		},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"}})
	return c.Handler(handler)
}
