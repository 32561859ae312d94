package seedevents_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/loadboard/internal/adapters/http/api"
	"github.com/okian/loadboard/internal/adapters/repository"
	service "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/internal/seedevents"
	"github.com/okian/loadboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given a service fed by its event log", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithEventLog(repository.NewMemoryEventLog()),
			service.WithQueueSize(64),
			service.WithWorkerCount(2),
			service.WithAutoRefresh(false),
		)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)

		convey.Reset(func() {
			srv.Close()
			svc.Stop()
		})

		cfg := &seedevents.Config{
			BaseURL:       srv.URL,
			Date:          time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Trucks:        40,
			Workers:       4,
			Timeout:       5 * time.Second,
			DuplicateRate: 0.2,
			MalformedRate: 0.2,
			VariantRate:   0.5,
			Shuffle:       true,
			Seed:          7,
			Settle:        50 * time.Millisecond,
			Attempts:      40,
			OutputFile:    filepath.Join(t.TempDir(), "out", "events.json"),
		}

		convey.Convey("When a noisy seed run is pushed", func() {
			stats, err := seedevents.Run(ctx, cfg)

			convey.Convey("Then every truck is reported back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.TrucksVerified, convey.ShouldEqual, 40)
				convey.So(stats.EventsFailed, convey.ShouldEqual, 0)
				convey.So(stats.EventsAccepted+stats.EventsDuplicate, convey.ShouldEqual, stats.EventsGenerated)
				convey.So(stats.EventsDuplicate, convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("Then the generated events are saved", func() {
				info, err := os.Stat(cfg.OutputFile)
				convey.So(err, convey.ShouldBeNil)
				convey.So(info.Size(), convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("Then malformed events were dropped, not fatal", func() {
				snap, err := svc.Snapshot()
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.Report.Normalize.Dropped, convey.ShouldEqual, stats.EventsMalformed)
			})
		})
	})

	convey.Convey("Given no service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		convey.Convey("Then the health check fails the run", func() {
			_, err := seedevents.Run(context.Background(), &seedevents.Config{BaseURL: srv.URL, Trucks: 1, Timeout: time.Second})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, seedevents.ErrVerification), convey.ShouldBeFalse)
		})
	})
}
