package service

import (
	"context"

	"github.com/okian/loadboard/internal/domain/aggregate"
	"github.com/okian/loadboard/internal/domain/livestate"
	"github.com/okian/loadboard/internal/domain/model"
)

// resolve returns the current snapshot and the date a query applies to. A
// zero date selects DefaultDate.
func (s *Service) resolve(date model.Date) (*Snapshot, model.Date, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, model.Date{}, err
	}
	if date.IsZero() {
		date = snap.defaultDate(model.DateOf(s.now()))
	}
	return snap, date, nil
}

// LiveCounts counts vehicles by their latest known stage on date.
// Vehicles whose latest status is unrecognized are not counted.
func (s *Service) LiveCounts(_ context.Context, date model.Date) (model.LiveCounts, error) {
	snap, date, err := s.resolve(date)
	if err != nil {
		return model.LiveCounts{}, err
	}
	return livestate.Count(livestate.Latest(snap.Events, date)), nil
}

// LiveStates returns the latest status of every vehicle seen on date.
func (s *Service) LiveStates(_ context.Context, date model.Date) ([]model.VehicleLiveState, error) {
	snap, date, err := s.resolve(date)
	if err != nil {
		return nil, err
	}
	return livestate.Latest(snap.Events, date), nil
}

// IntervalTable returns the per-vehicle rows of date for the selected
// products, ordered by product then vehicle. No products selects all.
func (s *Service) IntervalTable(_ context.Context, date model.Date, products []string) ([]model.IntervalRow, error) {
	snap, date, err := s.resolve(date)
	if err != nil {
		return nil, err
	}
	return aggregate.Filter(snap.Rows, date, products), nil
}

// DailySummary aggregates the rows of date per product.
func (s *Service) DailySummary(_ context.Context, date model.Date, products []string) ([]model.DailyProductSummary, error) {
	snap, date, err := s.resolve(date)
	if err != nil {
		return nil, err
	}
	return aggregate.DailySummary(aggregate.Filter(snap.Rows, date, products)), nil
}

// TrendSeries returns the mean total time per date and product over all data.
func (s *Service) TrendSeries(context.Context) ([]model.TrendPoint, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return aggregate.Trend(snap.Rows), nil
}

// Dates lists the dates present in the data, ascending.
func (s *Service) Dates(context.Context) ([]model.Date, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Dates, nil
}

// Products lists the products present in the data, ascending.
func (s *Service) Products(context.Context) ([]string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Products, nil
}

// DefaultDate is today when the data has rows for it, otherwise the latest
// date. It is zero when there is no data.
func (s *Service) DefaultDate(context.Context) (model.Date, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return model.Date{}, err
	}
	return snap.defaultDate(model.DateOf(s.now())), nil
}
