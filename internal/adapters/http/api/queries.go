package api

import (
	"context"
	"net/http"

	"github.com/okian/loadboard/internal/domain/model"
)

// QueryDependencies exposes the read side of the dashboard.
type QueryDependencies interface {
	LiveCounts(ctx context.Context, date model.Date) (model.LiveCounts, error)
	LiveStates(ctx context.Context, date model.Date) ([]model.VehicleLiveState, error)
	IntervalTable(ctx context.Context, date model.Date, products []string) ([]model.IntervalRow, error)
	DailySummary(ctx context.Context, date model.Date, products []string) ([]model.DailyProductSummary, error)
	TrendSeries(ctx context.Context) ([]model.TrendPoint, error)
	Dates(ctx context.Context) ([]model.Date, error)
	Products(ctx context.Context) ([]string, error)
	DefaultDate(ctx context.Context) (model.Date, error)
}

// dayQuery is the parsed date and product selection of a request.
type dayQuery struct {
	date     model.Date
	products []string
}

// parseDayQuery reads date and product parameters and resolves the default
// date. It writes the error response itself and reports false on failure.
func parseDayQuery(w http.ResponseWriter, r *http.Request, deps QueryDependencies, op string) (dayQuery, bool) {
	d, err := parseDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return dayQuery{}, false
	}
	d, err = resolveDate(r.Context(), deps, d)
	if err != nil {
		writeServiceError(w, err)
		return dayQuery{}, false
	}
	return dayQuery{date: d, products: parseProducts(r)}, true
}

// LiveHandler serves live status counts.
type LiveHandler struct{ deps QueryDependencies }

// NewLiveHandler creates a new live handler.
func NewLiveHandler(deps QueryDependencies) *LiveHandler { return &LiveHandler{deps: deps} }

type liveResponse struct {
	Date     model.Date               `json:"date"`
	Counts   model.LiveCounts         `json:"counts"`
	Vehicles []model.VehicleLiveState `json:"vehicles"`
}

// HandleGetLive handles GET /live?date=.
func (h *LiveHandler) HandleGetLive(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	q, ok := parseDayQuery(w, r, h.deps, "api.get_live")
	if !ok {
		return
	}
	counts, err := h.deps.LiveCounts(r.Context(), q.date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	states, err := h.deps.LiveStates(r.Context(), q.date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liveResponse{Date: q.date, Counts: counts, Vehicles: states})
}

// IntervalsHandler serves the per-vehicle interval table.
type IntervalsHandler struct{ deps QueryDependencies }

// NewIntervalsHandler creates a new intervals handler.
func NewIntervalsHandler(deps QueryDependencies) *IntervalsHandler {
	return &IntervalsHandler{deps: deps}
}

type intervalsResponse struct {
	Date     model.Date          `json:"date"`
	Products []string            `json:"products"`
	Rows     []model.IntervalRow `json:"rows"`
}

// HandleGetIntervals handles GET /intervals?date=&product=.
func (h *IntervalsHandler) HandleGetIntervals(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	q, ok := parseDayQuery(w, r, h.deps, "api.get_intervals")
	if !ok {
		return
	}
	rows, err := h.deps.IntervalTable(r.Context(), q.date, q.products)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intervalsResponse{Date: q.date, Products: nonNil(q.products), Rows: nonNil(rows)})
}

// SummaryHandler serves the daily product summary.
type SummaryHandler struct{ deps QueryDependencies }

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps QueryDependencies) *SummaryHandler { return &SummaryHandler{deps: deps} }

type summaryResponse struct {
	Date     model.Date                  `json:"date"`
	Products []string                    `json:"products"`
	Summary  []model.DailyProductSummary `json:"summary"`
}

// HandleGetSummary handles GET /summary?date=&product=.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	q, ok := parseDayQuery(w, r, h.deps, "api.get_summary")
	if !ok {
		return
	}
	summary, err := h.deps.DailySummary(r.Context(), q.date, q.products)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Date: q.date, Products: nonNil(q.products), Summary: nonNil(summary)})
}

// TrendHandler serves the trend series.
type TrendHandler struct{ deps QueryDependencies }

// NewTrendHandler creates a new trend handler.
func NewTrendHandler(deps QueryDependencies) *TrendHandler { return &TrendHandler{deps: deps} }

type trendResponse struct {
	Points []model.TrendPoint `json:"points"`
}

// HandleGetTrend handles GET /trend.
func (h *TrendHandler) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	points, err := h.deps.TrendSeries(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trendResponse{Points: nonNil(points)})
}

// FiltersHandler serves the values available to the dashboard filters.
type FiltersHandler struct{ deps QueryDependencies }

// NewFiltersHandler creates a new filters handler.
func NewFiltersHandler(deps QueryDependencies) *FiltersHandler { return &FiltersHandler{deps: deps} }

type filtersResponse struct {
	Dates       []model.Date `json:"dates"`
	Products    []string     `json:"products"`
	DefaultDate *model.Date  `json:"default_date"`
}

// HandleGetFilters handles GET /filters.
func (h *FiltersHandler) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	ctx := r.Context()
	dates, err := h.deps.Dates(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	products, err := h.deps.Products(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	def, err := h.deps.DefaultDate(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := filtersResponse{Dates: nonNil(dates), Products: nonNil(products)}
	if !def.IsZero() {
		resp.DefaultDate = &def
	}
	writeJSON(w, http.StatusOK, resp)
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
