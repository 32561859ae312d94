// Package service owns the refresh cycle and serves every dashboard query
// from the last successfully built snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/loadboard/internal/adapters/feed"
	eventqueue "github.com/okian/loadboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/loadboard/internal/adapters/mq/worker"
	"github.com/okian/loadboard/internal/adapters/repository"
	"github.com/okian/loadboard/internal/domain/dedupe"
	"github.com/okian/loadboard/internal/domain/livestate"
	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/pkg/logger"
	"github.com/okian/loadboard/pkg/metrics"
)

const (
	defaultCacheTTL        = 60 * time.Second
	defaultRefreshInterval = 60 * time.Second
	defaultQueueSize       = 10_000
	defaultWorkerCount     = 4
	defaultDedupeSize      = 100_000
	stopTimeout            = 10 * time.Second
	cycleTimeout           = 2 * time.Minute
)

// Notifier is told about refresh outcomes.
type Notifier interface {
	SnapshotPublished(snap *Snapshot)
	RefreshFailed(err error)
}

// Status describes the health of the refresh loop.
type Status struct {
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at"`
	Cycles      int64     `json:"cycles"`
	Failures    int64     `json:"failures"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
}

// Service implements the API dependencies for the loading dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	source   feed.Source
	cache    *feed.Cache
	eventLog repository.EventLog
	deduper  dedupe.Deduper
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	notifier Notifier

	// Configuration
	cacheTTL        time.Duration
	refreshInterval time.Duration
	autoRefresh     bool
	queueSize       int
	workerCount     int
	dedupeSize      int
	parallelism     int
	now             func() time.Time

	// State
	snapshot atomic.Pointer[Snapshot]
	flightMu sync.Mutex
	flight   *refreshCall
	statusMu sync.RWMutex
	status   Status
	lastErr  error
	started  bool
	cancel   context.CancelFunc
	loopDone chan struct{}

	// Logging
	logger logger.Logger
}

// refreshCall is a cycle in progress that concurrent callers join.
type refreshCall struct {
	done chan struct{}
	snap *Snapshot
	err  error
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheTTL:        defaultCacheTTL,
		refreshInterval: defaultRefreshInterval,
		queueSize:       defaultQueueSize,
		workerCount:     defaultWorkerCount,
		dedupeSize:      defaultDedupeSize,
		parallelism:     runtime.NumCPU(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.source == nil && s.eventLog != nil {
		s.source = repository.Source(s.eventLog)
	}
	if s.source != nil {
		s.cache = feed.NewCache(s.source, s.cacheTTL, feed.WithClock(s.now))
	}
	return s
}

// Start initializes ingestion, runs the first refresh cycle and launches the
// auto-refresh loop. A failing first cycle is logged, not returned: queries
// answer ErrNoSnapshot until a cycle succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.cache == nil {
		s.mu.Unlock()
		return ErrNoSource
	}

	s.logger.Info(ctx, "starting loadboard service...")

	if s.eventLog != nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
		s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.eventLog, s.cache)
		s.pool.Start(context.WithoutCancel(ctx))
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.started = true
	s.mu.Unlock()

	if _, err := s.Refresh(ctx, false); err != nil {
		s.logger.Warn(ctx, "initial refresh failed", logger.Error(err))
	}

	go s.loop(loopCtx)

	s.logger.Info(ctx, "loadboard service started",
		logger.String("source", s.source.Name()),
		logger.Bool("autoRefresh", s.autoRefresh),
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.Duration("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop shuts down the refresh loop and ingestion. Queued pushed events are
// persisted before Stop returns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping loadboard service...")

	s.cancel()
	<-s.loopDone

	s.flightMu.Lock()
	pending := s.flight
	s.flightMu.Unlock()
	if pending != nil {
		<-pending.done
	}

	if s.pool != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		if err := s.pool.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
		cancel()
	}

	s.started = false
	s.logger.Info(ctx, "loadboard service stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.loopDone)
	if !s.autoRefresh {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
			}
		}
	}
}

// Invalidate makes the next cycle refetch the feed. It lets the service
// stand in for its cache as a feed.Invalidator.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Invalidate()
	}
}

// Refresh runs one cycle: fetch through the cache, normalize, reconstruct,
// compute durations and publish. force drops the cached dataset first.
// Callers arriving while a cycle runs share its outcome. A caller whose ctx
// ends stops waiting; the cycle itself runs to completion for the others.
func (s *Service) Refresh(ctx context.Context, force bool) (*Snapshot, error) {
	if s.cache == nil {
		return nil, ErrNoSource
	}

	s.flightMu.Lock()
	c := s.flight
	if c == nil {
		c = &refreshCall{done: make(chan struct{})}
		s.flight = c
		go s.runCycle(context.WithoutCancel(ctx), c, force)
	}
	s.flightMu.Unlock()

	select {
	case <-c.done:
		return c.snap, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) runCycle(ctx context.Context, c *refreshCall, force bool) {
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	c.snap, c.err = s.cycle(ctx, force)

	s.flightMu.Lock()
	s.flight = nil
	s.flightMu.Unlock()
	close(c.done)
}

func (s *Service) cycle(ctx context.Context, force bool) (*Snapshot, error) {
	start := time.Now()
	if force {
		s.cache.Invalidate()
	}

	raw, err := s.cache.Fetch(ctx)
	if err != nil {
		outcome := metrics.OutcomeFetchError
		if errors.Is(err, feed.ErrSchema) {
			outcome = metrics.OutcomeSchemaError
		}
		metrics.RecordRefresh(outcome, float64(time.Since(start).Milliseconds()))
		s.fail(ctx, err)
		return nil, fmt.Errorf("refresh: %w", err)
	}

	snap := Build(raw, s.cache.FetchedAt(), s.now(), s.parallelism)
	s.snapshot.Store(snap)

	s.statusMu.Lock()
	s.status.Cycles++
	s.status.LastSuccess = snap.BuiltAt
	s.status.SnapshotID = snap.ID
	s.statusMu.Unlock()

	rep := snap.Report
	metrics.RecordRefresh(metrics.OutcomeSuccess, float64(time.Since(start).Milliseconds()))
	metrics.RecordNormalization(rep.Normalize.Input, rep.Normalize.Output, rep.Normalize.Dropped+rep.Normalize.MissingKey, rep.Normalize.Unrecognized)
	metrics.UpdateIntervalRecords(len(snap.Rows))
	metrics.RecordNegativeDurations(rep.Durations.Negative)
	s.updateLiveMetrics(snap)

	s.logger.Info(ctx, "snapshot published",
		logger.String("snapshotID", snap.ID),
		logger.Int("events", rep.Normalize.Output),
		logger.Int("dropped", rep.Normalize.Dropped),
		logger.Int("missingKey", rep.Normalize.MissingKey),
		logger.Int("unrecognized", rep.Normalize.Unrecognized),
		logger.Int("records", len(snap.Rows)),
		logger.Int("negativeDurations", rep.Durations.Negative),
	)
	if s.notifier != nil {
		s.notifier.SnapshotPublished(snap)
	}
	return snap, nil
}

func (s *Service) fail(ctx context.Context, err error) {
	s.statusMu.Lock()
	s.status.Cycles++
	s.status.Failures++
	s.status.LastError = err.Error()
	s.status.LastErrorAt = s.now()
	s.lastErr = err
	s.statusMu.Unlock()

	s.logger.Error(ctx, "refresh cycle failed", logger.Error(err))
	if s.notifier != nil {
		s.notifier.RefreshFailed(err)
	}
}

func (s *Service) updateLiveMetrics(snap *Snapshot) {
	today := model.DateOf(s.now())
	states := livestate.Latest(snap.Events, snap.defaultDate(today))
	byStatus := make(map[string]int)
	for st, n := range livestate.Breakdown(states) {
		byStatus[string(st)] = n
	}
	metrics.UpdateLiveVehicles(byStatus)
}

// Snapshot returns the last published snapshot or ErrNoSnapshot.
func (s *Service) Snapshot() (*Snapshot, error) {
	if snap := s.snapshot.Load(); snap != nil {
		return snap, nil
	}
	s.statusMu.RLock()
	cause := s.lastErr
	s.statusMu.RUnlock()
	if cause != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, cause)
	}
	return nil, ErrNoSnapshot
}

// Status reports the refresh loop health.
func (s *Service) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := s.Status()
	stats := map[string]interface{}{
		"started":         s.started,
		"autoRefresh":     s.autoRefresh,
		"refreshInterval": s.refreshInterval.String(),
		"cacheTTL":        s.cacheTTL.String(),
		"cycles":          st.Cycles,
		"failures":        st.Failures,
		"lastError":       st.LastError,
	}
	if s.source != nil {
		stats["source"] = s.source.Name()
	}
	if s.cache != nil {
		stats["fetchedAt"] = s.cache.FetchedAt()
	}
	if snap := s.snapshot.Load(); snap != nil {
		stats["snapshotID"] = snap.ID
		stats["builtAt"] = snap.BuiltAt
		stats["events"] = len(snap.Events)
		stats["records"] = len(snap.Rows)
		stats["dates"] = len(snap.Dates)
		stats["products"] = len(snap.Products)
		stats["report"] = snap.Report
	}
	if s.started && s.queue != nil {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["queueCapacity"] = s.queue.Capacity()
		stats["workerCount"] = s.pool.Size()
		stats["persisted"] = s.pool.Processed()
		stats["persistFailures"] = s.pool.Failed()
		stats["dedupeSize"] = s.deduper.Size()
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	if s.eventLog != nil {
		if n, err := s.eventLog.Count(ctx); err == nil {
			stats["storedEvents"] = n
		}
	}
	return stats
}
