package feed

import (
	"errors"
	"strings"
)

// Sentinel errors for feed adapters.
var (
	ErrSchema = errors.New("feed schema")
	ErrFetch  = errors.New("feed fetch failed")
)

// SchemaError reports required columns missing from a feed. It matches
// ErrSchema with errors.Is.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "feed schema: missing columns: " + strings.Join(e.Missing, ", ")
}

// Is makes errors.Is(err, ErrSchema) hold for any *SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
