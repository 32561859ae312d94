package feed

import (
	"context"
	"sync"
	"time"

	"github.com/okian/loadboard/internal/domain/model"
	"github.com/okian/loadboard/pkg/metrics"
)

// Cache wraps a Source and reuses its last dataset while younger than the
// TTL. Failed fetches are never cached. A zero TTL disables reuse.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	// fetchMu serializes trips to the source; mu guards the cached state
	// and is never held across a fetch.
	fetchMu   sync.Mutex
	mu        sync.Mutex
	events    []model.RawEvent
	fetchedAt time.Time
	valid     bool
	gen       uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithClock injects the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache wraps src with a TTL cache.
func NewCache(src Source, ttl time.Duration, opts ...CacheOption) *Cache {
	c := &Cache{src: src, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Source.
func (c *Cache) Name() string { return c.src.Name() }

// Fetch returns the cached dataset when fresh, otherwise fetches through.
// Fetches run one at a time; a caller queued behind a fetch reuses its
// result. A dataset fetched while Invalidate ran is returned but not kept.
func (c *Cache) Fetch(ctx context.Context) ([]model.RawEvent, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	c.mu.Lock()
	if c.valid && c.now().Sub(c.fetchedAt) < c.ttl {
		events := c.events
		c.mu.Unlock()
		metrics.RecordCacheHit()
		return events, nil
	}
	gen := c.gen
	c.mu.Unlock()
	metrics.RecordCacheMiss()

	events, err := c.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.events = events
	c.fetchedAt = c.now()
	c.valid = gen == c.gen
	c.mu.Unlock()
	return events, nil
}

// Invalidate forces the next Fetch to go to the source. It never waits on
// a fetch in flight.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.gen++
	c.mu.Unlock()
	metrics.RecordCacheInvalidation()
}

// FetchedAt returns when the cached dataset was fetched. Zero before the
// first successful fetch.
func (c *Cache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}
