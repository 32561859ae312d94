// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/loadboard/internal/adapters/feed"
	service "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/internal/domain/model"
)

// Dependencies required by HTTP handlers. Each handler depends on the
// narrow interface it needs; the service satisfies all of them.
type Dependencies interface {
	EventDependencies
	QueryDependencies
	RefreshDependencies
	HealthDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	metricsHandler   *MetricsHandler
	statsHandler     *StatsHandler
	eventsHandler    *EventsHandler
	refreshHandler   *RefreshHandler
	liveHandler      *LiveHandler
	intervalsHandler *IntervalsHandler
	summaryHandler   *SummaryHandler
	trendHandler     *TrendHandler
	filtersHandler   *FiltersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		metricsHandler:   NewMetricsHandler(),
		statsHandler:     NewStatsHandler(deps),
		eventsHandler:    NewEventsHandler(deps),
		refreshHandler:   NewRefreshHandler(deps),
		liveHandler:      NewLiveHandler(deps),
		intervalsHandler: NewIntervalsHandler(deps),
		summaryHandler:   NewSummaryHandler(deps),
		trendHandler:     NewTrendHandler(deps),
		filtersHandler:   NewFiltersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("/live", MetricsMiddleware(s.liveHandler.HandleGetLive, "live"))
	mux.HandleFunc("/intervals", MetricsMiddleware(s.intervalsHandler.HandleGetIntervals, "intervals"))
	mux.HandleFunc("/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/trend", MetricsMiddleware(s.trendHandler.HandleGetTrend, "trend"))
	mux.HandleFunc("/filters", MetricsMiddleware(s.filtersHandler.HandleGetFilters, "filters"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps pipeline errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feed.ErrSchema):
		writeError(w, http.StatusServiceUnavailable, "schema_error", err)
	case errors.Is(err, service.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, "no_data_yet", err)
	case errors.Is(err, feed.ErrFetch):
		writeError(w, http.StatusBadGateway, "fetch_error", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseDate reads the optional date parameter. An empty value selects the
// default date.
func parseDate(r *http.Request) (model.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, err
	}
	return d, nil
}

// parseProducts accepts product repeated, comma separated, or both.
func parseProducts(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["product"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// resolveDate turns the zero date into the service default.
func resolveDate(ctx context.Context, deps interface {
	DefaultDate(ctx context.Context) (model.Date, error)
}, d model.Date) (model.Date, error) {
	if !d.IsZero() {
		return d, nil
	}
	return deps.DefaultDate(ctx)
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return false
	}
	return true
}
