package normalize

import (
	"fmt"
	"strings"
	"time"
)

// layouts accepted for feed timestamps, tried in order. Fractional seconds
// are accepted after the seconds field by time.Parse.
var layouts = []string{ //nolint:gochecknoglobals // read-only layout list
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
}

// ParseTimestamp parses a feed timestamp. The result is timezone-naive: wall
// clock fields are kept as written and stored in UTC. Offsets present in the
// input are dropped, not applied.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableTimestamp)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return wallClock(t), nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
