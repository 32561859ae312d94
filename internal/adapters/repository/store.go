// Package repository persists push-ingested raw events and exposes them as a
// feed source.
package repository

import (
	"context"

	"github.com/okian/loadboard/internal/adapters/feed"
	"github.com/okian/loadboard/internal/domain/model"
)

// EventLog is an append-only log of raw events.
type EventLog interface {
	// Append stores ev. An event whose non-empty EventID is already stored
	// is ignored without error.
	Append(ctx context.Context, ev model.RawEvent) error

	// All returns every stored event in insertion order.
	All(ctx context.Context) ([]model.RawEvent, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	Close() error
}

type logSource struct {
	log EventLog
}

// Source exposes log as a feed.Source so the refresh pipeline can read
// push-ingested events like any other feed.
func Source(log EventLog) feed.Source {
	return logSource{log: log}
}

func (s logSource) Name() string { return "eventlog" }

func (s logSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	return s.log.All(ctx)
}
