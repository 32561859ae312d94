// Package worker drains the ingestion queue into the event log.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/loadboard/internal/adapters/mq/queue"
	"github.com/okian/loadboard/pkg/logger"
	"github.com/okian/loadboard/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Appender persists a raw event.
type Appender interface {
	Append(ctx context.Context, ev queue.Event) error
}

// Invalidator is told when new data was persisted so cached feeds refetch.
type Invalidator interface {
	Invalidate()
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker processes events from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker appends queued events to the event log.
type InMemoryWorker struct {
	queue       Queue
	store       Appender
	invalidator Invalidator
	name        string
	processed   *atomic.Int64
	failed      *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker.
func NewInMemoryWorker(q Queue, store Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		store:     store,
		name:      "worker",
		processed: &atomic.Int64{},
		failed:    &atomic.Int64{},
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. Events still queued when the queue closes are
// processed before Run returns.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for event := range w.queue.Dequeue(ctx) {
		if err := w.processEvent(ctx, event); err != nil {
			w.logger.Error(ctx, "error persisting event", logger.Error(err))
		}
	}
}

// Shutdown waits for the worker loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event queue.Event) error {
	start := time.Now()
	if err := w.store.Append(ctx, event); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "append failed for event",
			logger.String("eventID", event.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("append event %s: %w", event.EventID, err)
	}
	if w.invalidator != nil {
		w.invalidator.Invalidate()
	}
	w.processed.Add(1)
	metrics.RecordWorkerProcessed(float64(time.Since(start).Milliseconds()))
	return nil
}

// Pool manages multiple workers sharing a queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	failed    atomic.Int64
	logger    logger.Logger
}

// NewPool creates a pool of workerCount workers. inv may be nil.
func NewPool(workerCount int, q Queue, store Appender, inv Invalidator) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, store,
			WithName("worker-"+strconv.Itoa(i)),
			WithInvalidator(inv),
		)
		w.processed = &p.processed
		w.failed = &p.failed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many events were persisted.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed returns how many events could not be persisted.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
