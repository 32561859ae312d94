// Package interval rebuilds one stage-timestamp record per truck and day
// from normalized events.
package interval

import (
	"sort"
	"sync"
	"time"

	"github.com/okian/loadboard/internal/domain/model"
)

const (
	defaultParallelism  = 1
	defaultMinPerWorker = 256
)

type reconstructor struct {
	parallelism  int
	minPerWorker int
}

// Reconstruct groups events by (date, product, vehicle) and keeps the
// earliest timestamp of each known stage. Every key present in events yields
// exactly one record; stages never observed stay nil. Events with an
// unrecognized status still create their key. The result is sorted by key.
func Reconstruct(events []model.Event, opts ...Option) []model.IntervalRecord {
	r := &reconstructor{
		parallelism:  defaultParallelism,
		minPerWorker: defaultMinPerWorker,
	}
	for _, opt := range opts {
		opt(r)
	}

	partitions := partition(events)
	keys := make([]model.IntervalKey, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]model.IntervalRecord, len(keys))
	workers := r.workerCount(len(keys))
	if workers <= 1 {
		for i, k := range keys {
			out[i] = reduce(k, partitions[k])
		}
		return out
	}

	// Each goroutine writes a disjoint index range of out.
	var wg sync.WaitGroup
	chunk := (len(keys) + workers - 1) / workers
	for start := 0; start < len(keys); start += chunk {
		end := min(start+chunk, len(keys))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = reduce(keys[i], partitions[keys[i]])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

func (r *reconstructor) workerCount(partitions int) int {
	if r.parallelism <= 1 || partitions < 2*r.minPerWorker {
		return 1
	}
	return min(r.parallelism, partitions/r.minPerWorker)
}

func partition(events []model.Event) map[model.IntervalKey][]model.Event {
	parts := make(map[model.IntervalKey][]model.Event)
	for _, e := range events {
		k := model.IntervalKey{Date: e.Date, Product: e.Product, Vehicle: e.Vehicle}
		parts[k] = append(parts[k], e)
	}
	return parts
}

// reduce keeps the minimum timestamp per known stage. Min selection does not
// depend on event order.
func reduce(key model.IntervalKey, events []model.Event) model.IntervalRecord {
	rec := model.IntervalRecord{Key: key}
	for _, e := range events {
		switch e.Status {
		case model.StatusWaiting:
			rec.WaitingAt = earliest(rec.WaitingAt, e.At)
		case model.StatusStartLoading:
			rec.StartAt = earliest(rec.StartAt, e.At)
		case model.StatusCompleteLoading:
			rec.CompleteAt = earliest(rec.CompleteAt, e.At)
		}
	}
	return rec
}

func earliest(cur *time.Time, t time.Time) *time.Time {
	if cur == nil || t.Before(*cur) {
		v := t
		return &v
	}
	return cur
}
