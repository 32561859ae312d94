package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/pkg/metrics"
)

// FileSource reads a CSV export from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path on every fetch.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return "csv_file" }

// Path returns the file being read.
func (s *FileSource) Path() string { return s.path }

// Fetch implements Source.
func (s *FileSource) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	events, err := s.read()
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = "error"
	}
	metrics.RecordFeedFetch(s.Name(), outcome, float64(time.Since(start).Milliseconds()))
	return events, err
}

func (s *FileSource) read() ([]model.RawEvent, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = f.Close() }()

	events, err := DecodeCSV(f)
	if err != nil && !errors.Is(err, ErrSchema) {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, s.path, err)
	}
	return events, err
}
