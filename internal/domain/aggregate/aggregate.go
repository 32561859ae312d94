// Package aggregate rolls interval rows up into per-day, per-product views.
package aggregate

import (
	"sort"

	"github.com/okian/loadboard/internal/domain/model"
)

type groupKey struct {
	Date    model.Date
	Product string
}

func (k groupKey) less(o groupKey) bool {
	if k.Date != o.Date {
		return k.Date.Before(o.Date)
	}
	return k.Product < o.Product
}

// Filter keeps rows on date whose product is in products. An empty product
// selection keeps every product.
func Filter(rows []model.IntervalRow, date model.Date, products []string) []model.IntervalRow {
	var allowed map[string]struct{}
	if len(products) > 0 {
		allowed = make(map[string]struct{}, len(products))
		for _, p := range products {
			allowed[p] = struct{}{}
		}
	}
	out := make([]model.IntervalRow, 0, len(rows))
	for _, r := range rows {
		if r.Key.Date != date {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[r.Key.Product]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Mean returns the arithmetic mean of the known values, or nil when none is known.
func Mean(values []*float64) *float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

func group(rows []model.IntervalRow) ([]groupKey, map[groupKey][]model.IntervalRow) {
	groups := make(map[groupKey][]model.IntervalRow)
	for _, r := range rows {
		k := groupKey{Date: r.Key.Date, Product: r.Key.Product}
		groups[k] = append(groups[k], r)
	}
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys, groups
}

// DailySummary groups rows by (date, product). Each average covers only the
// rows where that duration is known; VehicleCount covers every row.
func DailySummary(rows []model.IntervalRow) []model.DailyProductSummary {
	keys, groups := group(rows)
	out := make([]model.DailyProductSummary, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		waiting := make([]*float64, len(g))
		loading := make([]*float64, len(g))
		total := make([]*float64, len(g))
		for i, r := range g {
			waiting[i] = r.Durations.WaitingMin
			loading[i] = r.Durations.LoadingMin
			total[i] = r.Durations.TotalMin
		}
		out = append(out, model.DailyProductSummary{
			Date:          k.Date,
			Product:       k.Product,
			AvgWaitingMin: Mean(waiting),
			AvgLoadingMin: Mean(loading),
			AvgTotalMin:   Mean(total),
			VehicleCount:  len(g),
		})
	}
	return out
}

// Trend returns the mean total time per (date, product) in chronological
// order. Groups without any known total are left out.
func Trend(rows []model.IntervalRow) []model.TrendPoint {
	keys, groups := group(rows)
	out := make([]model.TrendPoint, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		total := make([]*float64, len(g))
		for i, r := range g {
			total[i] = r.Durations.TotalMin
		}
		m := Mean(total)
		if m == nil {
			continue
		}
		out = append(out, model.TrendPoint{Date: k.Date, Product: k.Product, AvgTotalMin: *m})
	}
	return out
}
