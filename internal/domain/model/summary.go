package model

import "time"

// VehicleLiveState is the latest known status of a vehicle on a day.
type VehicleLiveState struct {
	Vehicle string    `json:"plate"`
	Product string    `json:"product"`
	Status  Status    `json:"status"`
	AsOf    time.Time `json:"as_of"`
}

// LiveCounts counts vehicles by their latest known stage.
type LiveCounts struct {
	Waiting         int `json:"waiting"`
	StartLoading    int `json:"start_loading"`
	CompleteLoading int `json:"complete_loading"`
}

// DailyProductSummary aggregates interval rows of one product on one day.
type DailyProductSummary struct {
	Date          Date     `json:"date"`
	Product       string   `json:"product"`
	AvgWaitingMin *float64 `json:"avg_waiting_min"`
	AvgLoadingMin *float64 `json:"avg_loading_min"`
	AvgTotalMin   *float64 `json:"avg_total_min"`
	VehicleCount  int      `json:"vehicle_count"`
}

// TrendPoint is the mean total time of a product on a day.
type TrendPoint struct {
	Date        Date    `json:"date"`
	Product     string  `json:"product"`
	AvgTotalMin float64 `json:"avg_total_min"`
}
