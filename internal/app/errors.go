package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrNoSnapshot is returned by queries before any refresh cycle has
	// succeeded. It wraps the last cycle failure when there is one.
	ErrNoSnapshot = errors.New("no snapshot available yet")

	// ErrNotStarted is returned by operations that need Start to have run.
	ErrNotStarted = errors.New("service not started")

	// ErrNoSource is returned by Refresh when no feed source is configured.
	ErrNoSource = errors.New("no feed source configured")
)
