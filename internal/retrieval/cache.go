package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/salmanfarse/folio/internal/log"
)

// DefaultTTL is how long a cache entry stays fresh.
const DefaultTTL = 10 * time.Minute

// entry is one cached value with its creation time. Entries older than
// the TTL are expired for new reads but stay around as stale fallbacks.
type entry[T any] struct {
	value     T
	createdAt time.Time
}

// Cache is a content-addressed TTL cache around an expensive fetch.
//
// Semantics:
//   - fresh hit: return the cached value, no fetch
//   - miss or expired: run fetch, store and return the result
//   - fetch failure with any prior entry (even expired): log a
//     degradation warning and serve the stale value
//   - fetch failure with no entry: propagate the error
//
// Concurrent requests for the same cold key are not deduplicated; each
// computes independently, which only costs redundant work.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	ttl     time.Duration
	logger  log.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// CacheOption configures a Cache.
type CacheOption[T any] func(*Cache[T])

// WithTTL overrides the freshness window.
func WithTTL[T any](d time.Duration) CacheOption[T] {
	return func(c *Cache[T]) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces the time source for tests.
func WithClock[T any](now func() time.Time) CacheOption[T] {
	return func(c *Cache[T]) { c.now = now }
}

// NewCache creates a cache with the default 10 minute TTL.
func NewCache[T any](logger log.Logger, opts ...CacheOption[T]) *Cache[T] {
	if logger == nil {
		logger = log.NewNop()
	}
	c := &Cache[T]{
		entries: make(map[string]entry[T]),
		ttl:     DefaultTTL,
		logger:  logger.With("component", "retrieval_cache"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the value for key, fetching at most once per TTL
// window under sequential access.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.Unlock()

	if ok && now.Sub(e.createdAt) < c.ttl {
		return e.value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		if ok {
			c.logger.Warn("fetch failed, serving stale cache entry",
				"key", key,
				"age", now.Sub(e.createdAt).String(),
				"error", err,
			)
			return e.value, nil
		}
		var zero T
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = entry[T]{value: value, createdAt: now}
	c.mu.Unlock()
	return value, nil
}

// Len reports the number of entries, fresh or stale.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key derives the cache key for a query and entity filter. The query is
// normalized (lowercased, whitespace collapsed) so trivially different
// phrasings of the same question share an entry.
func Key(query, entityFilter string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized + "|" + entityFilter))
	return hex.EncodeToString(sum[:])
}
