package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/upstream"
)

// DefaultDelays is the minimum spacing between upstream calls per category.
var DefaultDelays = map[core.Category]time.Duration{
	core.CategoryKline:        500 * time.Millisecond,
	core.CategoryTokenDetails: 1000 * time.Millisecond,
	core.CategoryTransactions: 1500 * time.Millisecond,
	core.CategoryHolders:      2000 * time.Millisecond,
	core.CategoryRisk:         2500 * time.Millisecond,
	core.CategorySearch:       1000 * time.Millisecond,
}

// DefaultDelay applies to categories without a registered delay.
const DefaultDelay = 1000 * time.Millisecond

// Pacer spaces calls per category and retries once after a rate limit.
type Pacer struct {
	Delays map[core.Category]time.Duration
	Policy upstream.RetryPolicy
	Clock  func() time.Time
	// OnWait observes each non-zero pacing wait.
	OnWait func(category core.Category, wait time.Duration)

	mu       sync.Mutex
	counters map[core.Category]*core.PacingCounter
}

// Schedule waits until category's minimum delay has elapsed since its last
// call, records the new call, then runs op. Overlapping calls reserve
// successive start slots so their start times stay spaced. A rate-limited op
// is retried once per the policy, with the counter refreshed before the retry.
func (p *Pacer) Schedule(ctx context.Context, category core.Category, op func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil {
		return op(ctx)
	}

	if wait := p.reserve(category); wait > 0 {
		if p.OnWait != nil {
			p.OnWait(category, wait)
		}
		if err := p.Policy.Wait(ctx, wait); err != nil {
			return err
		}
	}

	return p.Policy.Do(ctx, op, func(int, error) {
		p.touch(category)
	})
}

// Run is the value-returning form of Schedule.
func Run[T any](ctx context.Context, p *Pacer, category core.Category, op func(context.Context) (T, error)) (T, error) {
	var result T
	err := p.Schedule(ctx, category, func(ctx context.Context) error {
		value, err := op(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	return result, err
}

// Delay returns the configured minimum spacing for category.
func (p *Pacer) Delay(category core.Category) time.Duration {
	if p != nil && p.Delays != nil {
		if delay, ok := p.Delays[category]; ok {
			return delay
		}
	}
	if delay, ok := DefaultDelays[category]; ok {
		return delay
	}
	return DefaultDelay
}

// ApplyOverrides merges per-category delay overrides in milliseconds.
func (p *Pacer) ApplyOverrides(overrides map[string]int) {
	if p == nil || len(overrides) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Delays == nil {
		p.Delays = make(map[core.Category]time.Duration, len(DefaultDelays))
		for key, delay := range DefaultDelays {
			p.Delays[key] = delay
		}
	}

	for category, value := range overrides {
		category = strings.TrimSpace(category)
		if category == "" || value < 0 {
			continue
		}
		p.Delays[core.Category(category)] = time.Duration(value) * time.Millisecond
	}
}

// Snapshot reports counters for every registered category plus any category
// seen at runtime.
func (p *Pacer) Snapshot() []core.PacingSnapshot {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[core.Category]bool)
	snapshots := make([]core.PacingSnapshot, 0, len(core.Categories))
	add := func(category core.Category) {
		if seen[category] {
			return
		}
		seen[category] = true
		snapshot := core.PacingSnapshot{Category: category, MinDelay: p.Delay(category)}
		if counter := p.counters[category]; counter != nil {
			snapshot.PacingCounter = *counter
		}
		snapshots = append(snapshots, snapshot)
	}

	for _, category := range core.Categories {
		add(category)
	}
	extra := make([]core.Category, 0)
	for category := range p.counters {
		if !seen[category] {
			extra = append(extra, category)
		}
	}
	for category := range p.Delays {
		if !seen[category] {
			extra = append(extra, category)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, category := range extra {
		add(category)
	}
	return snapshots
}

func (p *Pacer) reserve(category core.Category) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	counter := p.counter(category)
	start := now
	if !counter.LastRequestAt.IsZero() {
		if next := counter.LastRequestAt.Add(p.Delay(category)); next.After(now) {
			start = next
		}
	}
	counter.LastRequestAt = start
	counter.Count++
	return start.Sub(now)
}

func (p *Pacer) touch(category core.Category) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter(category).LastRequestAt = p.now()
}

func (p *Pacer) counter(category core.Category) *core.PacingCounter {
	if p.counters == nil {
		p.counters = make(map[core.Category]*core.PacingCounter)
	}
	counter, ok := p.counters[category]
	if !ok {
		counter = &core.PacingCounter{}
		p.counters[category] = counter
	}
	return counter
}

func (p *Pacer) now() time.Time {
	if p != nil && p.Clock != nil {
		return p.Clock()
	}
	return time.Now().UTC()
}
