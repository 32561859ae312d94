package service

import (
	"time"

	"github.com/okian/loadboard/internal/adapters/feed"
	"github.com/okian/loadboard/internal/adapters/repository"
	"github.com/okian/loadboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSource sets the feed the refresh cycle reads from.
func WithSource(src feed.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithCacheTTL sets how long a fetched dataset is reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithRefreshInterval sets the auto-refresh period.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithAutoRefresh enables or disables the periodic refresh loop.
func WithAutoRefresh(on bool) Option {
	return func(s *Service) {
		s.autoRefresh = on
	}
}

// WithEventLog sets the store that pushed events are persisted to. Without
// one, push ingestion is disabled.
func WithEventLog(log repository.EventLog) Option {
	return func(s *Service) {
		if log != nil {
			s.eventLog = log
		}
	}
}

// WithQueueSize sets the maximum size of the ingestion queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of ingestion workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the size of the event id deduplication set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithParallelism caps goroutines used for interval reconstruction.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithClock injects the time source used for snapshot stamps, cache ages
// and the default date.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier registers a listener for refresh outcomes.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}
