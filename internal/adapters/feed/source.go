// Package feed reads raw loading events from the configured collaborator:
// a CSV export over HTTP, a local CSV file, or the push-ingested event log.
package feed

import (
	"context"

	"github.com/okian/loadboard/internal/domain/model"
)

// Source returns the full current dataset on every call.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawEvent, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc struct {
	ID string
	Fn func(ctx context.Context) ([]model.RawEvent, error)
}

// Name implements Source.
func (s SourceFunc) Name() string { return s.ID }

// Fetch implements Source.
func (s SourceFunc) Fetch(ctx context.Context) ([]model.RawEvent, error) { return s.Fn(ctx) }
