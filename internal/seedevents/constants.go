package seedevents

import "time"

// Timestamp layouts the service accepts. The first is canonical.
const (
	layoutCanonical = "2006-01-02 15:04:05"
	layoutISO       = "2006-01-02T15:04:05"
	layoutSlash     = "2006/01/02 15:04:05"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	maxBackpressureRetries  = 5
	backpressureDelay       = 50 * time.Millisecond
)

// Truck day shape, in minutes.
const (
	dayStartMinute  = 6 * 60
	dayWindowMinute = 12 * 60
	minWaitMinute   = 5
	maxWaitMinute   = 60
	minLoadMinute   = 10
	maxLoadMinute   = 45
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	durationTolerance    = 0.01
)
