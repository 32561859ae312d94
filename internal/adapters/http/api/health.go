package api

import (
	"net/http"
	"time"

	service "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthDependencies exposes the refresh loop health.
type HealthDependencies interface {
	Status() service.Status
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status      string     `json:"status"`
	SnapshotID  string     `json:"snapshot_id,omitempty"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// HandleHealth handles GET /healthz. It answers 200 once a snapshot exists
// or while no cycle has failed yet, and 503 otherwise.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	st := h.deps.Status()
	resp := healthResponse{Status: "ok", SnapshotID: st.SnapshotID, LastError: st.LastError}
	if !st.LastSuccess.IsZero() {
		last := st.LastSuccess
		resp.LastRefresh = &last
	}

	code := http.StatusOK
	switch {
	case st.SnapshotID == "" && st.Failures > 0:
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	case st.LastError != "" && st.LastErrorAt.After(st.LastSuccess):
		resp.Status = "degraded"
	}
	writeJSON(w, code, resp)
}

// MetricsHandler serves the Prometheus exposition of the custom registry.
type MetricsHandler struct {
	next http.Handler
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{next: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.next.ServeHTTP(w, r)
}
