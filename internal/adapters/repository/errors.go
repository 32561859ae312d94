package repository

import "errors"

// Sentinel kinds for event log errors.
var (
	ErrClosed      = errors.New("event log closed")
	ErrInvalidPath = errors.New("invalid event log path")
)
