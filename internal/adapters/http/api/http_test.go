package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/loadboard/internal/adapters/feed"
	"github.com/okian/loadboard/internal/adapters/http/api"
	service "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies implements api.Dependencies.
type mockDependencies struct {
	mu sync.Mutex

	ingest    bool
	queueFull bool
	seen      map[string]bool
	enqueued  []model.RawEvent

	queryErr    error
	refreshErr  error
	defaultDate model.Date
	lastDate    model.Date
	lastProds   []string
	status      service.Status
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		ingest:      true,
		seen:        map[string]bool{},
		defaultDate: model.Date{Year: 2024, Month: time.March, Day: 2},
	}
}

func (m *mockDependencies) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDependencies) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDependencies) Enqueue(_ context.Context, ev model.RawEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queueFull {
		return false
	}
	m.enqueued = append(m.enqueued, ev)
	return true
}

func (m *mockDependencies) IngestEnabled() bool { return m.ingest }

func (m *mockDependencies) record(date model.Date, products []string) {
	m.lastDate = date
	m.lastProds = products
}

func (m *mockDependencies) LiveCounts(_ context.Context, date model.Date) (model.LiveCounts, error) {
	m.record(date, nil)
	if m.queryErr != nil {
		return model.LiveCounts{}, m.queryErr
	}
	return model.LiveCounts{Waiting: 1, StartLoading: 1, CompleteLoading: 2}, nil
}

func (m *mockDependencies) LiveStates(_ context.Context, date model.Date) ([]model.VehicleLiveState, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return []model.VehicleLiveState{{Vehicle: "AB-123", Product: "Gasoline", Status: model.StatusWaiting}}, nil
}

func (m *mockDependencies) IntervalTable(_ context.Context, date model.Date, products []string) ([]model.IntervalRow, error) {
	m.record(date, products)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	total := 42.5
	return []model.IntervalRow{{
		IntervalRecord: model.IntervalRecord{Key: model.IntervalKey{Date: date, Product: "Gasoline", Vehicle: "AB-123"}},
		Durations:      model.DurationSet{TotalMin: &total},
	}}, nil
}

func (m *mockDependencies) DailySummary(_ context.Context, date model.Date, products []string) ([]model.DailyProductSummary, error) {
	m.record(date, products)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return nil, nil
}

func (m *mockDependencies) TrendSeries(context.Context) ([]model.TrendPoint, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return []model.TrendPoint{{Date: m.defaultDate, Product: "Diesel", AvgTotalMin: 30}}, nil
}

func (m *mockDependencies) Dates(context.Context) ([]model.Date, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return []model.Date{m.defaultDate}, nil
}

func (m *mockDependencies) Products(context.Context) ([]string, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return []string{"Diesel", "Gasoline"}, nil
}

func (m *mockDependencies) DefaultDate(context.Context) (model.Date, error) {
	if m.queryErr != nil {
		return model.Date{}, m.queryErr
	}
	return m.defaultDate, nil
}

func (m *mockDependencies) Refresh(_ context.Context, force bool) (*service.Snapshot, error) {
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	return &service.Snapshot{ID: "snap-1", BuiltAt: time.Unix(100, 0).UTC()}, nil
}

func (m *mockDependencies) Status() service.Status { return m.status }

func (m *mockDependencies) GetStats() map[string]interface{} {
	return map[string]interface{}{"cycles": 3}
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("Then every read endpoint answers GET", func() {
			for _, path := range []string{"/healthz", "/stats", "/live", "/intervals", "/summary", "/trend", "/filters"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			}
		})

		Convey("Then read endpoints reject other methods", func() {
			w := do(mux, http.MethodPost, "/live", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then the metrics endpoint exposes the registry", func() {
			do(mux, http.MethodGet, "/live", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "loadboard_")
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		body := `{"event_id":"e-1","timestamp":"2024-03-02 08:00:00","product":"Diesel","plate":"AB-123","status":"Waiting"}`

		Convey("When a valid event is posted", func() {
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then it is accepted and enqueued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				out := decode(w)
				So(out["status"], ShouldEqual, "accepted")
				So(out["event_id"], ShouldEqual, "e-1")
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].Vehicle, ShouldEqual, "AB-123")
				So(deps.enqueued[0].Status, ShouldEqual, "Waiting")
			})

			Convey("Then a repeat is reported as duplicate", func() {
				w2 := do(mux, http.MethodPost, "/events", body)
				So(w2.Code, ShouldEqual, http.StatusOK)
				So(decode(w2)["duplicate"], ShouldEqual, true)
				So(deps.enqueued, ShouldHaveLength, 1)
			})
		})

		Convey("When the event id is omitted", func() {
			w := do(mux, http.MethodPost, "/events", `{"timestamp":"2024-03-02 08:00","product":"Diesel","plate":"X","status":"done"}`)

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(decode(w)["event_id"], ShouldNotBeEmpty)
			})
		})

		Convey("When required fields are missing", func() {
			for _, bad := range []string{
				`{"product":"Diesel","plate":"X","status":"done"}`,
				`{"timestamp":"2024-03-02 08:00","plate":"X","status":"done"}`,
				`{"timestamp":"2024-03-02 08:00","product":"Diesel","status":"done"}`,
				`{"timestamp":"2024-03-02 08:00","product":"Diesel","plate":"X"}`,
				`not json`,
			} {
				w := do(mux, http.MethodPost, "/events", bad)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("When the queue is full", func() {
			deps.queueFull = true
			w := do(mux, http.MethodPost, "/events", body)

			Convey("Then the client is told to back off and may retry", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(w)["code"], ShouldEqual, "backpressure")
				deps.queueFull = false
				So(do(mux, http.MethodPost, "/events", body).Code, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When ingestion is disabled", func() {
			deps.ingest = false
			w := do(mux, http.MethodPost, "/events", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "ingest_disabled")
		})

		Convey("When using GET", func() {
			So(do(mux, http.MethodGet, "/events", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestQueryHandlers(t *testing.T) {
	Convey("Given the query endpoints", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When no date is given", func() {
			w := do(mux, http.MethodGet, "/live", "")

			Convey("Then the default date is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				out := decode(w)
				So(out["date"], ShouldEqual, "2024-03-02")
				counts := out["counts"].(map[string]any)
				So(counts["complete_loading"], ShouldEqual, 2.0)
				So(deps.lastDate, ShouldResemble, deps.defaultDate)
			})
		})

		Convey("When a date and products are given", func() {
			w := do(mux, http.MethodGet, "/intervals?date=2024-03-01&product=Diesel,Gasoline&product=LPG", "")

			Convey("Then both are passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastDate, ShouldResemble, model.Date{Year: 2024, Month: time.March, Day: 1})
				So(deps.lastProds, ShouldResemble, []string{"Diesel", "Gasoline", "LPG"})
				rows := decode(w)["rows"].([]any)
				So(rows, ShouldHaveLength, 1)
				durations := rows[0].(map[string]any)["durations"].(map[string]any)
				So(durations["total_min"], ShouldEqual, 42.5)
				So(durations["waiting_min"], ShouldBeNil)
			})
		})

		Convey("When the date is malformed", func() {
			for _, path := range []string{"/live", "/intervals", "/summary"} {
				w := do(mux, http.MethodGet, path+"?date=02/03/2024", "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the summary is empty", func() {
			w := do(mux, http.MethodGet, "/summary?date=2024-03-02", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["summary"], ShouldResemble, []any{})
		})

		Convey("When the filters are requested", func() {
			out := decode(do(mux, http.MethodGet, "/filters", ""))
			So(out["products"], ShouldResemble, []any{"Diesel", "Gasoline"})
			So(out["dates"], ShouldResemble, []any{"2024-03-02"})
			So(out["default_date"], ShouldEqual, "2024-03-02")
		})

		Convey("When the trend is requested", func() {
			points := decode(do(mux, http.MethodGet, "/trend", ""))["points"].([]any)
			So(points, ShouldHaveLength, 1)
			So(points[0].(map[string]any)["avg_total_min"], ShouldEqual, 30.0)
		})
	})
}

func TestServiceErrorMapping(t *testing.T) {
	Convey("Given failing queries", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		cases := []struct {
			err  error
			code int
			kind string
		}{
			{fmt.Errorf("%w: %w", service.ErrNoSnapshot, &feed.SchemaError{Missing: []string{"Status"}}), http.StatusServiceUnavailable, "schema_error"},
			{service.ErrNoSnapshot, http.StatusServiceUnavailable, "no_data_yet"},
			{fmt.Errorf("%w: status 500", feed.ErrFetch), http.StatusBadGateway, "fetch_error"},
			{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tc := range cases {
			deps.queryErr = tc.err
			for _, path := range []string{"/live", "/trend", "/filters"} {
				w := do(mux, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, tc.code)
				So(decode(w)["code"], ShouldEqual, tc.kind)
			}
		}
	})
}

func TestRefreshHandler(t *testing.T) {
	Convey("Given the refresh endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When refresh succeeds", func() {
			w := do(mux, http.MethodPost, "/refresh", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["snapshot_id"], ShouldEqual, "snap-1")
		})

		Convey("When the feed cannot be fetched", func() {
			deps.refreshErr = fmt.Errorf("%w: dial", feed.ErrFetch)
			w := do(mux, http.MethodPost, "/refresh", "")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("When using GET", func() {
			So(do(mux, http.MethodGet, "/refresh", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When nothing has run yet", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("When every cycle has failed", func() {
			deps.status = service.Status{Failures: 2, LastError: "fetch error", LastErrorAt: time.Now()}
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["last_error"], ShouldEqual, "fetch error")
		})

		Convey("When the last cycle failed after an earlier success", func() {
			now := time.Now()
			deps.status = service.Status{
				SnapshotID: "snap-1", LastSuccess: now.Add(-time.Minute),
				Failures: 1, LastError: "schema error", LastErrorAt: now,
			}
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			out := decode(w)
			So(out["status"], ShouldEqual, "degraded")
			So(out["last_refresh"], ShouldNotBeNil)
		})
	})
}
