package router

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"

	"github.com/golang/glog"

	"github.com/prebid/prebid-server-core/endpoints"
	metricsConf "github.com/prebid/prebid-server-core/metrics/config"
)

// Admin returns the handler for the admin server: profiling, the version, and the go-metrics registry if one is in use.
func Admin(revision string, metricsEngine *metricsConf.DetailedMetricsEngine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	versionEndpoint := endpoints.NewVersionEndpoint(version, revision)
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		versionEndpoint(w, r, nil)
	})

	if metricsEngine != nil && metricsEngine.GoMetrics != nil {
		registry := metricsEngine.GoMetrics.MetricsRegistry
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
			response, err := json.Marshal(registry.GetAll())
			if err != nil {
				glog.Errorf("Failed to marshal the metrics registry: %v", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(response)
		})
	}
	return mux
}
