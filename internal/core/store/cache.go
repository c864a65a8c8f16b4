package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tokenlens/tokenlens/internal/core"
)

// Lookup describes how a cached read was satisfied.
type Lookup string

const (
	LookupHit   Lookup = "hit"
	LookupMiss  Lookup = "miss"
	LookupStale Lookup = "stale"
)

// Entry is a stored value with the time it was stored. LastErr records the
// most recent refresh failure while the value was being served stale.
type Entry struct {
	Value    any
	StoredAt time.Time
	LastErr  error
}

// Event is emitted after every GetOrCompute call.
type Event struct {
	Key    string
	Lookup Lookup
	Age    time.Duration
	Err    error
}

// Cache is a process-lifetime map of computed values. Entries are replaced on
// the next successful compute and never evicted, so an old value stays
// available as a fallback indefinitely.
type Cache struct {
	Clock   func() time.Time
	OnEvent func(Event)

	mu      sync.RWMutex
	entries map[string]Entry
	flight  singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// KeySeparator joins the parts of a cache key; the first part is the category.
const KeySeparator = "|"

// Key derives a deterministic cache key from a category and its parameters.
func Key(category core.Category, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, string(category))
	for _, param := range params {
		parts = append(parts, strings.ToLower(strings.TrimSpace(param)))
	}
	return strings.Join(parts, KeySeparator)
}

// Peek returns the entry for key regardless of its age.
func (c *Cache) Peek(key string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores value under key, replacing any previous entry.
func (c *Cache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]Entry)
	}
	c.entries[key] = Entry{Value: value, StoredAt: c.now()}
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys lists stored keys in sorted order.
func (c *Cache) Keys() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// GetOrCompute returns the entry for key while it is younger than ttl.
// Otherwise compute runs; concurrent callers for the same key share one
// compute. On failure the previous value is served stale if one exists,
// otherwise the compute error is returned.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, Lookup, error) {
	if c == nil {
		return nil, LookupMiss, fmt.Errorf("cache is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	prior, hasPrior := c.Peek(key)
	if hasPrior && ttl > 0 && c.now().Sub(prior.StoredAt) < ttl {
		c.emit(Event{Key: key, Lookup: LookupHit, Age: c.now().Sub(prior.StoredAt)})
		return prior.Value, LookupHit, nil
	}

	value, err, _ := c.flight.Do(key, func() (any, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err == nil {
		c.emit(Event{Key: key, Lookup: LookupMiss})
		return value, LookupMiss, nil
	}

	if !hasPrior {
		c.emit(Event{Key: key, Lookup: LookupMiss, Err: err})
		return nil, LookupMiss, err
	}

	c.mu.Lock()
	if current, ok := c.entries[key]; ok && current.StoredAt.Equal(prior.StoredAt) {
		current.LastErr = err
		c.entries[key] = current
	}
	c.mu.Unlock()

	c.emit(Event{Key: key, Lookup: LookupStale, Age: c.now().Sub(prior.StoredAt), Err: err})
	return prior.Value, LookupStale, nil
}

// Compute is the typed form of GetOrCompute.
func Compute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, Lookup, error) {
	var zero T
	value, lookup, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return zero, lookup, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, lookup, fmt.Errorf("cache entry %q holds %T", key, value)
	}
	return typed, lookup, nil
}

func (c *Cache) emit(event Event) {
	if c.OnEvent != nil {
		c.OnEvent(event)
	}
}

func (c *Cache) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}
