// Package model contains domain models passed between layers.
package model

import "time"

// Status is the loading stage carried by an event. The three known stages
// are constants below; any other value is an unrecognized label kept verbatim.
type Status string

// Known loading stages.
const (
	StatusWaiting         Status = "Waiting"
	StatusStartLoading    Status = "Start Loading"
	StatusCompleteLoading Status = "Complete Loading"
)

// KnownStatuses lists the known stages in pipeline order.
func KnownStatuses() []Status {
	return []Status{StatusWaiting, StatusStartLoading, StatusCompleteLoading}
}

// Known reports whether s is one of the three known stages.
func (s Status) Known() bool {
	switch s {
	case StatusWaiting, StatusStartLoading, StatusCompleteLoading:
		return true
	default:
		return false
	}
}

// RawEvent is a feed record before any cleaning. Every field is free text.
type RawEvent struct {
	EventID   string `json:"event_id,omitempty"` // optional, used for idempotent push ingestion
	Timestamp string `json:"timestamp"`
	Product   string `json:"product"`
	Vehicle   string `json:"plate"`
	Status    string `json:"status"`
}

// Event is a normalized status event.
type Event struct {
	At      time.Time // timezone-naive wall clock, stored as UTC
	Date    Date      // calendar date of At
	Product string
	Vehicle string
	Status  Status
	Seq     int // position in the original feed, breaks timestamp ties
}
