package service

import (
	"context"
	"errors"

	eventqueue "github.com/okian/loadboard/internal/adapters/mq/queue"
	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/pkg/logger"
	"github.com/okian/loadboard/pkg/metrics"
)

// IngestEnabled reports whether pushed events can be accepted.
func (s *Service) IngestEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && s.queue != nil
}

// SeenAndRecord atomically checks if an event id was seen and records it if not.
// Returns true if the event was already seen, false if it was newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	if s.deduper == nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventDuplicate()
	}
	return seen
}

// Unrecord removes an event ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if s.deduper != nil {
		s.deduper.Unrecord(ctx, id)
	}
}

// Enqueue submits a pushed event for persistence. It returns false when the
// queue is full, closed, or ingestion is not running.
func (s *Service) Enqueue(ctx context.Context, ev model.RawEvent) bool {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return false
	}

	if err := q.TryEnqueue(ctx, ev); err != nil {
		level := s.logger.Warn
		if errors.Is(err, eventqueue.ErrClosed) {
			level = s.logger.Debug
		}
		level(ctx, "event not enqueued",
			logger.String("eventID", ev.EventID),
			logger.Error(err),
		)
		return false
	}
	s.logger.Debug(ctx, "event enqueued",
		logger.String("eventID", ev.EventID),
		logger.String("plate", ev.Vehicle),
		logger.String("status", ev.Status),
	)
	return true
}
