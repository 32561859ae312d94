package seedevents

import (
	"context"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/internal/domain/normalize"
	"github.com/okian/loadboard/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig() *Config {
	cfg := &Config{
		Date:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Trucks:      60,
		Products:    []string{"Diesel", "Gasoline"},
		PlatePrefix: "TST",
		Seed:        42,
	}
	cfg.Defaults()
	return cfg
}

func TestGenerate(t *testing.T) {
	Convey("Given a clean configuration", t, func() {
		cfg := testConfig()
		stats := &Stats{}
		trucks, events := Generate(context.Background(), cfg, stats)

		Convey("Then every truck yields three canonical events", func() {
			So(trucks, ShouldHaveLength, 60)
			So(events, ShouldHaveLength, 180)
			So(stats.EventsGenerated, ShouldEqual, 180)
			So(stats.EventsMalformed, ShouldEqual, 0)
			for _, ev := range events {
				_, err := time.Parse(layoutCanonical, ev.Timestamp)
				So(err, ShouldBeNil)
				So(ev.Plate, ShouldStartWith, "TST-")
			}
		})

		Convey("Then truck stages are ordered within the day", func() {
			for _, tr := range trucks {
				So(tr.Start.After(tr.Waiting), ShouldBeTrue)
				So(tr.Complete.After(tr.Start), ShouldBeTrue)
				So(tr.Complete.Day(), ShouldEqual, 2)
				So(tr.TotalMin(), ShouldBeBetweenOrEqual, float64(minWaitMinute+minLoadMinute), float64(maxWaitMinute+maxLoadMinute))
			}
		})

		Convey("Then products are spread round robin", func() {
			So(trucks[0].Product, ShouldEqual, "Diesel")
			So(trucks[1].Product, ShouldEqual, "Gasoline")
		})
	})

	Convey("Given the same seed twice", t, func() {
		a, _ := Generate(context.Background(), testConfig(), &Stats{})
		b, _ := Generate(context.Background(), testConfig(), &Stats{})

		Convey("Then the truck days match", func() {
			So(a, ShouldResemble, b)
		})
	})

	Convey("Given full noise", t, func() {
		cfg := testConfig()
		cfg.DuplicateRate = 1
		cfg.MalformedRate = 1
		cfg.VariantRate = 1
		cfg.Shuffle = true
		stats := &Stats{}
		_, events := Generate(context.Background(), cfg, stats)

		Convey("Then each truck gets resends and a malformed event", func() {
			So(events, ShouldHaveLength, 60*7)
			So(stats.EventsMalformed, ShouldEqual, 60)
		})

		Convey("Then every well formed event still normalizes to a known stage", func() {
			ids := map[string]int{}
			bad := 0
			for _, ev := range events {
				ids[ev.EventID]++
				if _, err := normalize.ParseTimestamp(ev.Timestamp); err != nil {
					bad++
					continue
				}
				st := normalize.Status(ev.Status)
				So(st == model.StatusWaiting || st == model.StatusStartLoading || st == model.StatusCompleteLoading, ShouldBeTrue)
				So(strings.TrimSpace(ev.Plate), ShouldStartWith, "TST-")
			}
			So(bad, ShouldEqual, 60)
			So(len(ids), ShouldEqual, 60*4)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given generated trucks", t, func() {
		trucks, _ := Generate(context.Background(), testConfig(), &Stats{})
		rows := make([]intervalRow, 0, len(trucks))
		for _, tr := range trucks {
			var r intervalRow
			r.Key.Product, r.Key.Plate = tr.Product, tr.Plate
			total := tr.TotalMin()
			r.Durations.TotalMin = &total
			rows = append(rows, r)
		}

		Convey("When the service reports all of them", func() {
			n, err := verifyIntervals(trucks, rows)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, len(trucks))
		})

		Convey("When one is missing", func() {
			_, err := verifyIntervals(trucks, rows[1:])
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "1 of 60 trucks missing")
		})

		Convey("When one has the wrong total", func() {
			wrong := 1.0
			rows[0].Durations.TotalMin = &wrong
			n, err := verifyIntervals(trucks, rows)
			So(err, ShouldNotBeNil)
			So(n, ShouldEqual, len(trucks)-1)
		})

		Convey("When the summary undercounts a product", func() {
			err := verifySummary(trucks, []summaryEntry{{Product: "Diesel", VehicleCount: 30}, {Product: "Gasoline", VehicleCount: 29}})
			So(err, ShouldNotBeNil)
			So(verifySummary(trucks, []summaryEntry{{Product: "Diesel", VehicleCount: 31}, {Product: "Gasoline", VehicleCount: 30}}), ShouldBeNil)
		})
	})
}
