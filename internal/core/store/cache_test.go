package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewCache()
	cache.Clock = clock.Now
	return cache, clock
}

func TestCacheFreshHitSkipsCompute(t *testing.T) {
	cache, clock := newTestCache()
	calls := 0
	compute := func(context.Context) (any, error) {
		calls++
		return calls, nil
	}

	value, lookup, err := cache.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, LookupMiss, lookup)
	require.Equal(t, 1, value)

	clock.Advance(30 * time.Second)
	value, lookup, err = cache.GetOrCompute(context.Background(), "k", time.Minute, compute)
	require.NoError(t, err)
	require.Equal(t, LookupHit, lookup)
	require.Equal(t, 1, value)
	require.Equal(t, 1, calls)
}

func TestCacheServesStaleOnFailure(t *testing.T) {
	cache, clock := newTestCache()
	var events []Event
	cache.OnEvent = func(e Event) { events = append(events, e) }

	_, _, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		return "v1", nil
	})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	boom := errors.New("upstream down")
	value, lookup, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)
	require.Equal(t, LookupStale, lookup)
	require.Equal(t, "v1", value)

	entry, ok := cache.Peek("k")
	require.True(t, ok)
	require.ErrorIs(t, entry.LastErr, boom)

	require.Len(t, events, 2)
	require.Equal(t, LookupStale, events[1].Lookup)
	require.Equal(t, 2*time.Minute, events[1].Age)
}

func TestCachePropagatesErrorWithoutPrior(t *testing.T) {
	cache, _ := newTestCache()
	boom := errors.New("boom")
	_, lookup, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, LookupMiss, lookup)
	require.Zero(t, cache.Len())
}

func TestCacheExpiredEntryIsReplaced(t *testing.T) {
	cache, clock := newTestCache()
	_, _, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) { return "old", nil })
	require.NoError(t, err)

	clock.Advance(time.Minute)
	value, lookup, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) { return "new", nil })
	require.NoError(t, err)
	require.Equal(t, LookupMiss, lookup)
	require.Equal(t, "new", value)

	entry, ok := cache.Peek("k")
	require.True(t, ok)
	require.Equal(t, "new", entry.Value)
	require.Equal(t, clock.Now(), entry.StoredAt)
}

func TestCacheSharesConcurrentCompute(t *testing.T) {
	cache, _ := newTestCache()
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, _, err := cache.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "shared", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "shared", value)
		}()
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&calls), int32(5))
	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestComputeTyped(t *testing.T) {
	cache, _ := newTestCache()
	value, lookup, err := Compute(context.Background(), cache, "k", time.Minute, func(context.Context) ([]int, error) {
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	require.Equal(t, LookupMiss, lookup)
	require.Equal(t, []int{1, 2}, value)

	cache.Set("other", "text")
	_, _, err = Compute(context.Background(), cache, "other", time.Minute, func(context.Context) (int, error) { return 0, nil })
	require.Error(t, err)
}

func TestKeyIsDeterministic(t *testing.T) {
	require.Equal(t, "search|pepe|all", Key(core.CategorySearch, " PEPE ", "all"))
	require.Equal(t, Key(core.CategoryKline, "0xAbC", "bsc", "1h"), Key(core.CategoryKline, "0xabc", "BSC", "1h"))
	require.Equal(t, []string{}, (&Cache{}).Keys())
}
