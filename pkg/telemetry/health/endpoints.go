package health

import (
	"encoding/json"
	"net/http"
	"runtime"

	"velocity-hq/loadgate/pkg/config"
)

// VersionInfo is served on the version path.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Backend   string `json:"backend,omitempty"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Register mounts liveness, readiness and version on mux at the configured
// paths, GET (and HEAD) only. Nothing is mounted when health is disabled.
func Register(mux *http.ServeMux, checker *Checker, cfg config.HealthConfig, info VersionInfo) {
	if !cfg.Enabled {
		return
	}
	info.GoVersion = runtime.Version()

	mux.HandleFunc("GET "+cfg.LivenessPath, func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusOK, checker.Live())
	})
	mux.HandleFunc("GET "+cfg.ReadinessPath, func(w http.ResponseWriter, r *http.Request) {
		status, err := checker.Ready(r.Context())
		if err != nil {
			// Same contract as the API's ledger failures.
			w.Header().Set("Retry-After", "1")
			writeStatus(w, r, http.StatusServiceUnavailable, status)
			return
		}
		writeStatus(w, r, http.StatusOK, status)
	})
	mux.HandleFunc("GET "+cfg.VersionPath, func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, r, http.StatusOK, info)
	})
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}
