// Package livestate derives the current stage of each vehicle on a day.
package livestate

import (
	"sort"

	"github.com/okian/loadboard/internal/domain/model"
)

// Latest returns, for each vehicle seen on date, the status of its
// chronologically latest event. When several events share the latest
// timestamp the one appearing last in the feed wins.
func Latest(events []model.Event, date model.Date) []model.VehicleLiveState {
	latest := make(map[string]model.Event)
	for _, e := range events {
		if e.Date != date {
			continue
		}
		cur, ok := latest[e.Vehicle]
		if !ok || later(e, cur) {
			latest[e.Vehicle] = e
		}
	}

	out := make([]model.VehicleLiveState, 0, len(latest))
	for _, e := range latest {
		out = append(out, model.VehicleLiveState{
			Vehicle: e.Vehicle,
			Product: e.Product,
			Status:  e.Status,
			AsOf:    e.At,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vehicle < out[j].Vehicle })
	return out
}

func later(a, b model.Event) bool {
	if !a.At.Equal(b.At) {
		return a.At.After(b.At)
	}
	return a.Seq > b.Seq
}

// Count tallies vehicles into the three known stages. Vehicles whose latest
// status is unrecognized are not counted.
func Count(states []model.VehicleLiveState) model.LiveCounts {
	var c model.LiveCounts
	for _, s := range states {
		switch s.Status {
		case model.StatusWaiting:
			c.Waiting++
		case model.StatusStartLoading:
			c.StartLoading++
		case model.StatusCompleteLoading:
			c.CompleteLoading++
		}
	}
	return c
}

// Breakdown tallies vehicles by every latest status, recognized or not.
func Breakdown(states []model.VehicleLiveState) map[model.Status]int {
	out := make(map[model.Status]int, len(states))
	for _, s := range model.KnownStatuses() {
		out[s] = 0
	}
	for _, s := range states {
		out[s.Status]++
	}
	return out
}
