// Package duration derives stage durations from interval records.
package duration

import (
	"time"

	"github.com/okian/loadboard/internal/domain/model"
)

// Report counts suppressed values across a batch of records.
type Report struct {
	Records  int `json:"records"`
	Negative int `json:"negative"` // durations dropped because end preceded start
	Missing  int `json:"missing"`  // durations unknown because an endpoint was absent
}

// Between returns the elapsed minutes from start to end. It returns nil when
// either endpoint is absent or when end precedes start.
func Between(start, end *time.Time) *float64 {
	v, _ := between(start, end)
	return v
}

type outcome int

const (
	known outcome = iota
	missing
	negative
)

func between(start, end *time.Time) (*float64, outcome) {
	if start == nil || end == nil {
		return nil, missing
	}
	m := end.Sub(*start).Minutes()
	if m < 0 {
		return nil, negative
	}
	return &m, known
}

// Compute derives waiting, loading and total minutes for rec.
func Compute(rec model.IntervalRecord) model.DurationSet {
	set, _ := compute(rec)
	return set
}

func compute(rec model.IntervalRecord) (model.DurationSet, [3]outcome) {
	var (
		set model.DurationSet
		oc  [3]outcome
	)
	set.WaitingMin, oc[0] = between(rec.WaitingAt, rec.StartAt)
	set.LoadingMin, oc[1] = between(rec.StartAt, rec.CompleteAt)
	set.TotalMin, oc[2] = between(rec.WaitingAt, rec.CompleteAt)
	return set, oc
}

// Rows pairs every record with its durations and reports anomalies.
func Rows(records []model.IntervalRecord) ([]model.IntervalRow, Report) {
	rep := Report{Records: len(records)}
	rows := make([]model.IntervalRow, len(records))
	for i, rec := range records {
		set, oc := compute(rec)
		for _, o := range oc {
			switch o {
			case negative:
				rep.Negative++
			case missing:
				rep.Missing++
			}
		}
		rows[i] = model.IntervalRow{IntervalRecord: rec, Durations: set}
	}
	return rows, rep
}
