package seedevents

import (
	"fmt"
	"math"
)

type truckKey struct {
	product string
	plate   string
}

// verifyIntervals checks every generated truck appears with the expected
// total time. Rows from other runs are ignored.
func verifyIntervals(trucks []Truck, rows []intervalRow) (int, error) {
	seen := make(map[truckKey]intervalRow, len(rows))
	for _, r := range rows {
		seen[truckKey{r.Key.Product, r.Key.Plate}] = r
	}

	verified := 0
	var missing, wrong int
	for _, t := range trucks {
		r, ok := seen[truckKey{t.Product, t.Plate}]
		if !ok {
			missing++
			continue
		}
		if r.Durations.TotalMin == nil || math.Abs(*r.Durations.TotalMin-t.TotalMin()) > durationTolerance {
			wrong++
			continue
		}
		verified++
	}
	if missing > 0 || wrong > 0 {
		return verified, fmt.Errorf("%d of %d trucks missing, %d with wrong total", missing, len(trucks), wrong)
	}
	return verified, nil
}

// verifySummary checks each product counts at least the trucks this run
// generated for it.
func verifySummary(trucks []Truck, summary []summaryEntry) error {
	want := map[string]int{}
	for _, t := range trucks {
		want[t.Product]++
	}
	got := map[string]int{}
	for _, s := range summary {
		got[s.Product] = s.VehicleCount
	}
	for product, n := range want {
		if got[product] < n {
			return fmt.Errorf("product %s: summary counts %d vehicles, expected at least %d", product, got[product], n)
		}
	}
	return nil
}
