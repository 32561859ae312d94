package interval_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/loadboard/internal/domain/interval"
	"github.com/okian/loadboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var day = time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func ev(seq int, ts time.Time, product, vehicle string, status model.Status) model.Event {
	return model.Event{At: ts, Date: model.DateOf(ts), Product: product, Vehicle: vehicle, Status: status, Seq: seq}
}

func TestReconstruct(t *testing.T) {
	Convey("Given a complete truck visit", t, func() {
		events := []model.Event{
			ev(0, at(8, 0), "Cement", "ABC-1", model.StatusWaiting),
			ev(1, at(8, 30), "Cement", "ABC-1", model.StatusStartLoading),
			ev(2, at(9, 45), "Cement", "ABC-1", model.StatusCompleteLoading),
		}

		Convey("When reconstructing", func() {
			recs := interval.Reconstruct(events)

			Convey("Then one record should hold all three stages", func() {
				So(recs, ShouldHaveLength, 1)
				So(recs[0].Key, ShouldResemble, model.IntervalKey{Date: model.DateOf(day), Product: "Cement", Vehicle: "ABC-1"})
				So(recs[0].WaitingAt.Equal(at(8, 0)), ShouldBeTrue)
				So(recs[0].StartAt.Equal(at(8, 30)), ShouldBeTrue)
				So(recs[0].CompleteAt.Equal(at(9, 45)), ShouldBeTrue)
			})
		})
	})

	Convey("Given duplicate stage events for one key", t, func() {
		events := []model.Event{
			ev(0, at(8, 10), "Cement", "ABC-1", model.StatusWaiting),
			ev(1, at(8, 0), "Cement", "ABC-1", model.StatusWaiting),
			ev(2, at(8, 20), "Cement", "ABC-1", model.StatusWaiting),
		}

		Convey("Then the earliest timestamp should win", func() {
			recs := interval.Reconstruct(events)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].WaitingAt.Equal(at(8, 0)), ShouldBeTrue)
		})
	})

	Convey("Given a key with a single stage", t, func() {
		events := []model.Event{ev(0, at(10, 0), "Sand", "X", model.StatusStartLoading)}

		Convey("Then the other stages should be absent", func() {
			recs := interval.Reconstruct(events)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].WaitingAt, ShouldBeNil)
			So(recs[0].StartAt, ShouldNotBeNil)
			So(recs[0].CompleteAt, ShouldBeNil)
		})
	})

	Convey("Given a key seen only with an unrecognized status", t, func() {
		events := []model.Event{ev(0, at(10, 0), "Sand", "Y", model.Status("Unloading"))}

		Convey("Then it should still yield a record with every stage absent", func() {
			recs := interval.Reconstruct(events)
			So(recs, ShouldHaveLength, 1)
			So(recs[0].WaitingAt, ShouldBeNil)
			So(recs[0].StartAt, ShouldBeNil)
			So(recs[0].CompleteAt, ShouldBeNil)
		})
	})

	Convey("Given the same vehicle on two days and two products", t, func() {
		next := day.AddDate(0, 0, 1).Add(8 * time.Hour)
		events := []model.Event{
			ev(0, next, "Cement", "ABC-1", model.StatusWaiting),
			ev(1, at(8, 0), "Sand", "ABC-1", model.StatusWaiting),
			ev(2, at(8, 0), "Cement", "ABC-1", model.StatusWaiting),
		}

		Convey("Then each key should get its own record in key order", func() {
			recs := interval.Reconstruct(events)
			So(recs, ShouldHaveLength, 3)
			So(recs[0].Key.Product, ShouldEqual, "Cement")
			So(recs[0].Key.Date, ShouldResemble, model.DateOf(day))
			So(recs[1].Key.Product, ShouldEqual, "Sand")
			So(recs[2].Key.Date, ShouldResemble, model.DateOf(next))
		})
	})

	Convey("Given no events", t, func() {
		So(interval.Reconstruct(nil), ShouldBeEmpty)
	})
}

func TestReconstructOrderAndParallelism(t *testing.T) {
	Convey("Given a large shuffled event set", t, func() {
		statuses := model.KnownStatuses()
		var events []model.Event
		for v := 0; v < 600; v++ {
			for i, s := range statuses {
				for dup := 0; dup < 2; dup++ {
					ts := at(6, 0).Add(time.Duration(v)*time.Second + time.Duration(i*30+dup*5)*time.Minute)
					events = append(events, ev(len(events), ts, fmt.Sprintf("P%d", v%3), fmt.Sprintf("V%03d", v), s))
				}
			}
		}
		shuffled := append([]model.Event(nil), events...)
		rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		Convey("When reconstructing sequentially and in parallel", func() {
			seq := interval.Reconstruct(events)
			par := interval.Reconstruct(shuffled,
				interval.WithParallelism(8),
				interval.WithMinPartitionsPerWorker(16),
			)

			Convey("Then every key should appear exactly once", func() {
				So(seq, ShouldHaveLength, 600)
				seen := make(map[model.IntervalKey]bool)
				for _, r := range par {
					So(seen[r.Key], ShouldBeFalse)
					seen[r.Key] = true
				}
				So(seen, ShouldHaveLength, 600)
			})

			Convey("And the results should be identical", func() {
				So(par, ShouldResemble, seq)
			})
		})
	})
}
