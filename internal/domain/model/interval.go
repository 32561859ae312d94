package model

import "time"

// IntervalKey identifies one truck on one day for one product.
type IntervalKey struct {
	Date    Date   `json:"date"`
	Product string `json:"product"`
	Vehicle string `json:"plate"`
}

// Less orders keys by date, product, then vehicle.
func (k IntervalKey) Less(o IntervalKey) bool {
	if k.Date != o.Date {
		return k.Date.Before(o.Date)
	}
	if k.Product != o.Product {
		return k.Product < o.Product
	}
	return k.Vehicle < o.Vehicle
}

// IntervalRecord holds the first timestamp of each known stage for a key.
// A nil field means the stage was never observed.
type IntervalRecord struct {
	Key        IntervalKey `json:"key"`
	WaitingAt  *time.Time  `json:"waiting_at"`
	StartAt    *time.Time  `json:"start_at"`
	CompleteAt *time.Time  `json:"complete_at"`
}

// DurationSet holds derived stage durations in minutes. Nil means unknown.
type DurationSet struct {
	WaitingMin *float64 `json:"waiting_min"`
	LoadingMin *float64 `json:"loading_min"`
	TotalMin   *float64 `json:"total_min"`
}

// IntervalRow pairs a record with its durations.
type IntervalRow struct {
	IntervalRecord
	Durations DurationSet `json:"durations"`
}
