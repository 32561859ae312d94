package service

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/okian/loadboard/internal/domain/duration"
	"github.com/okian/loadboard/internal/domain/interval"
	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/internal/domain/normalize"
)

// Snapshot is the immutable result of one successful refresh cycle.
// Queries only ever read a published Snapshot.
type Snapshot struct {
	ID        string
	BuiltAt   time.Time
	FetchedAt time.Time
	Events    []model.Event
	Rows      []model.IntervalRow
	Dates     []model.Date // ascending
	Products  []string     // ascending
	Report    BuildReport
}

// BuildReport collects the per-stage counters of a cycle.
type BuildReport struct {
	Normalize normalize.Report `json:"normalize"`
	Durations duration.Report  `json:"durations"`
}

// Build runs the pure pipeline over a raw dataset.
func Build(raw []model.RawEvent, fetchedAt, builtAt time.Time, parallelism int) *Snapshot {
	events, nrep := normalize.Events(raw)
	records := interval.Reconstruct(events, interval.WithParallelism(parallelism))
	rows, drep := duration.Rows(records)

	return &Snapshot{
		ID:        uuid.NewString(),
		BuiltAt:   builtAt,
		FetchedAt: fetchedAt,
		Events:    events,
		Rows:      rows,
		Dates:     datesOf(rows),
		Products:  productsOf(rows),
		Report:    BuildReport{Normalize: nrep, Durations: drep},
	}
}

func datesOf(rows []model.IntervalRow) []model.Date {
	seen := make(map[model.Date]struct{})
	var out []model.Date
	for _, r := range rows {
		if _, ok := seen[r.Key.Date]; ok {
			continue
		}
		seen[r.Key.Date] = struct{}{}
		out = append(out, r.Key.Date)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func productsOf(rows []model.IntervalRow) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.Key.Product]; ok {
			continue
		}
		seen[r.Key.Product] = struct{}{}
		out = append(out, r.Key.Product)
	}
	sort.Strings(out)
	return out
}

// defaultDate is today when the snapshot has rows for it, else the latest date.
func (s *Snapshot) defaultDate(today model.Date) model.Date {
	if len(s.Dates) == 0 {
		return model.Date{}
	}
	for _, d := range s.Dates {
		if d == today {
			return today
		}
	}
	return s.Dates[len(s.Dates)-1]
}
