package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"

	"github.com/prebid/prebid-server-core/health"
)

// NewHealthEndpoint implements /health.
//
// The response maps each checker's name to its last status. Checkers which haven't run yet are left out.
// If any dependency is down, the response is a 503.
func NewHealthEndpoint(checkers []health.Checker) httprouter.Handle {
	return func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		statuses := make(map[string]*health.StatusResponse, len(checkers))
		code := http.StatusOK
		for _, checker := range checkers {
			status := checker.Status()
			if status == nil {
				continue
			}
			statuses[checker.Name()] = status
			if status.Status != health.StatusUp {
				code = http.StatusServiceUnavailable
			}
		}

		response, err := json.Marshal(statuses)
		if err != nil {
			glog.Errorf("/health failed to marshal statuses: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write(response)
	}
}
