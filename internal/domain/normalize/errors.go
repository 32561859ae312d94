package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
)
