// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers .env, an optional YAML file and LOADBOARD_* env vars on top.
// - Validate reports the first offending key wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Feed types accepted by FeedType.
const (
	FeedEventLog = "eventlog"
	FeedCSVURL   = "csv_url"
	FeedCSVFile  = "csv_file"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// FeedType selects where raw events come from: eventlog, csv_url or csv_file.
	FeedType string `koanf:"feed_type"`

	// FeedURL is the CSV export URL used when FeedType is csv_url.
	FeedURL string `koanf:"feed_url"`

	// FeedPath is the CSV file used when FeedType is csv_file.
	FeedPath string `koanf:"feed_path"`

	// FeedTimeout bounds a single HTTP fetch attempt.
	FeedTimeout time.Duration `koanf:"feed_timeout"`

	// FeedMaxRetries, FeedBackoff and FeedMaxBackoff tune HTTP fetch retries.
	FeedMaxRetries int           `koanf:"feed_max_retries"`
	FeedBackoff    time.Duration `koanf:"feed_backoff"`
	FeedMaxBackoff time.Duration `koanf:"feed_max_backoff"`

	// WatchFeedFile invalidates the cache and refreshes when FeedPath changes.
	WatchFeedFile bool `koanf:"watch_feed_file"`

	// CacheTTL is how long a fetched dataset is reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RefreshInterval is the auto-refresh period.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// AutoRefresh enables the periodic refresh loop.
	AutoRefresh bool `koanf:"auto_refresh"`

	// DBPath is the SQLite event log location. ":memory:" keeps the log in memory.
	DBPath string `koanf:"db_path"`

	// EventQueueSize bounds the in-memory ingestion queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event id deduplication set.
	DedupeSize int `koanf:"dedupe_size"`

	// ReconstructParallelism caps goroutines used by interval reconstruction.
	ReconstructParallelism int `koanf:"reconstruct_parallelism"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		FeedType:               FeedEventLog,
		FeedTimeout:            10 * time.Second,
		FeedMaxRetries:         3,
		FeedBackoff:            500 * time.Millisecond,
		FeedMaxBackoff:         5 * time.Second,
		WatchFeedFile:          true,
		CacheTTL:               60 * time.Second,
		RefreshInterval:        60 * time.Second,
		AutoRefresh:            true,
		DBPath:                 "loadboard.db",
		EventQueueSize:         10_000,
		WorkerCount:            4,
		DedupeSize:             100_000,
		ReconstructParallelism: runtime.NumCPU(),
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr", "must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format", "must be text or json")
	case c.CacheTTL < 0:
		return invalid("cache_ttl", "must not be negative")
	case c.AutoRefresh && c.RefreshInterval <= 0:
		return invalid("refresh_interval", "must be positive when auto_refresh is on")
	case c.FeedTimeout <= 0:
		return invalid("feed_timeout", "must be positive")
	case c.FeedMaxRetries < 0:
		return invalid("feed_max_retries", "must not be negative")
	case c.EventQueueSize <= 0:
		return invalid("queue_size", "must be positive")
	case c.WorkerCount <= 0:
		return invalid("worker_count", "must be positive")
	case c.DedupeSize <= 0:
		return invalid("dedupe_size", "must be positive")
	case c.ReconstructParallelism <= 0:
		return invalid("reconstruct_parallelism", "must be positive")
	}

	switch strings.ToLower(c.FeedType) {
	case FeedEventLog:
		if c.DBPath == "" {
			return invalid("db_path", "required for feed_type eventlog")
		}
	case FeedCSVURL:
		if c.FeedURL == "" {
			return invalid("feed_url", "required for feed_type csv_url")
		}
	case FeedCSVFile:
		if c.FeedPath == "" {
			return invalid("feed_path", "required for feed_type csv_file")
		}
	default:
		return invalid("feed_type", fmt.Sprintf("unknown value %q", c.FeedType))
	}
	return nil
}

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, key, reason)
}
