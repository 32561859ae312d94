package seedevents

import (
	"time"
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Date          time.Time     // Day the synthetic trucks are loaded on
	Trucks        int           // Number of truck days to generate
	Products      []string      // Product names trucks are spread over
	PlatePrefix   string        // Prefix making this run's plates unique
	Workers       int           // Number of concurrent submitters
	Timeout       time.Duration // HTTP request timeout
	DuplicateRate float64       // Share of events sent twice
	MalformedRate float64       // Share of trucks given an extra unparseable event
	VariantRate   float64       // Share of events with a non-canonical label or layout
	Shuffle       bool          // Submit events out of chronological order
	Seed          uint64        // Random seed; 0 picks one from the clock
	Settle        time.Duration // Delay between verification attempts
	Attempts      int           // Verification attempts before giving up
	OutputFile    string        // Output file for generated events
	Verbose       bool          // Enable verbose logging
}

// Event mirrors the POST /events request body.
type Event struct {
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Product   string `json:"product"`
	Plate     string `json:"plate"`
	Status    string `json:"status"`
}

// Truck is one generated truck day with its true stage times.
type Truck struct {
	Product  string
	Plate    string
	Waiting  time.Time
	Start    time.Time
	Complete time.Time
}

// TotalMin returns the expected waiting-to-complete minutes.
func (t Truck) TotalMin() float64 { return t.Complete.Sub(t.Waiting).Minutes() }

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	TrucksGenerated int
	EventsGenerated int
	EventsMalformed int
	EventsSubmitted int
	EventsAccepted  int
	EventsDuplicate int
	EventsFailed    int
	Backpressured   int
	TrucksVerified  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
