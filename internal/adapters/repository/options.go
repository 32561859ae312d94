package repository

import (
	"time"

	"github.com/okian/loadboard/pkg/logger"
)

// Option applies a configuration option to the SQLiteEventLog.
type Option func(*SQLiteEventLog)

// WithClock sets the clock used to stamp received_at.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteEventLog) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteEventLog) {
		if l != nil {
			s.log = l
		}
	}
}
