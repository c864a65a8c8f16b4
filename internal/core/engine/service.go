package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/normalize"
	"github.com/tokenlens/tokenlens/internal/core/store"
	"github.com/tokenlens/tokenlens/internal/core/upstream"
)

var (
	// ErrInvalidInput marks a request missing required parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingAPIKey is returned by operations that refuse to run without credentials.
	ErrMissingAPIKey = errors.New("API key not configured")
)

const (
	DefaultKlineInterval     = "1h"
	DefaultKlineLimit        = 100
	DefaultTransactionsLimit = 20
)

// Service answers token market-data queries: each call is paced per category,
// served from cache while fresh, and otherwise fetched from the first upstream
// candidate that yields a recognizable payload.
type Service struct {
	Fetcher *upstream.Fetcher
	Pacer   *Pacer
	Cache   *store.Cache
	TTLs    CachePolicy
	Logger  *logging.Logger
	Clock   func() time.Time
	// Random feeds the synthetic kline generator.
	Random func() float64
	// OverviewConcurrency bounds the overview fan-out; zero runs every part at once.
	OverviewConcurrency int
}

// SearchTokens looks up tokens by keyword, optionally on one chain.
func (s *Service) SearchTokens(ctx context.Context, keyword, chain string) (core.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	chain = strings.TrimSpace(chain)
	if keyword == "" {
		return core.SearchResult{}, fmt.Errorf("%w: missing required parameter: keyword", ErrInvalidInput)
	}

	chainKey := chain
	if chainKey == "" {
		chainKey = "all"
	}
	key := store.Key(core.CategorySearch, keyword, chainKey)

	result, lookup, err := store.Compute(ctx, s.cache(), key, s.TTLs.TTL(core.CategorySearch), func(ctx context.Context) (core.SearchResult, error) {
		if s.client().APIKey == "" {
			return core.SearchResult{}, ErrMissingAPIKey
		}
		match, err := s.fetch(ctx, core.CategorySearch, s.client().SearchCandidates(keyword, chain))
		if err != nil {
			return core.SearchResult{}, err
		}
		return normalize.SearchTokens(match.Payload, keyword, chain), nil
	})
	s.logLookup(core.CategorySearch, key, lookup, err)
	return result, err
}

// TokenDetails returns the detail record for a token.
func (s *Service) TokenDetails(ctx context.Context, ref core.TokenRef) (core.TokenDetails, error) {
	ref, err := validateRef(ref)
	if err != nil {
		return core.TokenDetails{}, err
	}

	key := store.Key(core.CategoryTokenDetails, ref.Address, ref.Chain)
	details, lookup, err := store.Compute(ctx, s.cache(), key, s.TTLs.TTL(core.CategoryTokenDetails), func(ctx context.Context) (core.TokenDetails, error) {
		match, err := s.fetch(ctx, core.CategoryTokenDetails, s.client().TokenDetailCandidates(ref))
		if err != nil {
			return core.TokenDetails{}, err
		}
		return normalize.TokenDetails(match.Payload, ref), nil
	})
	s.logLookup(core.CategoryTokenDetails, key, lookup, err)
	return details, err
}

// Holders returns the holder ranking for a token. On failure the returned
// slice is empty, never nil, alongside the error.
func (s *Service) Holders(ctx context.Context, ref core.TokenRef) ([]core.HolderEntry, error) {
	ref, err := validateRef(ref)
	if err != nil {
		return []core.HolderEntry{}, err
	}

	key := store.Key(core.CategoryHolders, ref.Address, ref.Chain)
	holders, lookup, err := store.Compute(ctx, s.cache(), key, s.TTLs.TTL(core.CategoryHolders), func(ctx context.Context) ([]core.HolderEntry, error) {
		match, err := s.fetch(ctx, core.CategoryHolders, s.client().HolderCandidates(ref))
		if err != nil {
			return nil, err
		}
		return normalize.Holders(match.Payload), nil
	})
	s.logLookup(core.CategoryHolders, key, lookup, err)
	if err != nil {
		return []core.HolderEntry{}, err
	}
	return holders, nil
}

// Transactions returns recent swaps for a token, newest first as upstream
// orders them. toTime pages backwards when set.
func (s *Service) Transactions(ctx context.Context, ref core.TokenRef, limit int, toTime string) ([]core.TransactionEntry, error) {
	ref, err := validateRef(ref)
	if err != nil {
		return []core.TransactionEntry{}, err
	}
	if limit <= 0 {
		limit = DefaultTransactionsLimit
	}
	toTime = strings.TrimSpace(toTime)

	key := store.Key(core.CategoryTransactions, ref.Address, ref.Chain, strconv.Itoa(limit), toTime)
	txs, lookup, err := store.Compute(ctx, s.cache(), key, s.TTLs.TTL(core.CategoryTransactions), func(ctx context.Context) ([]core.TransactionEntry, error) {
		match, err := s.fetch(ctx, core.CategoryTransactions, s.client().TransactionCandidates(ref, limit, toTime))
		if err != nil {
			return nil, err
		}
		return normalize.Transactions(match.Payload, ref), nil
	})
	s.logLookup(core.CategoryTransactions, key, lookup, err)
	if err != nil {
		return []core.TransactionEntry{}, err
	}
	return txs, nil
}

// Risk returns the contract risk report for a token; empty on failure.
func (s *Service) Risk(ctx context.Context, ref core.TokenRef) (core.RiskReport, error) {
	ref, err := validateRef(ref)
	if err != nil {
		return core.RiskReport{}, err
	}

	key := store.Key(core.CategoryRisk, ref.Address, ref.Chain)
	report, lookup, err := store.Compute(ctx, s.cache(), key, s.TTLs.TTL(core.CategoryRisk), func(ctx context.Context) (core.RiskReport, error) {
		match, err := s.fetch(ctx, core.CategoryRisk, s.client().RiskCandidates(ref))
		if err != nil {
			return nil, err
		}
		return normalize.Risk(match.Payload), nil
	})
	s.logLookup(core.CategoryRisk, key, lookup, err)
	if err != nil {
		return core.RiskReport{}, err
	}
	return report, nil
}

// Kline returns candles for a token. When upstream fails the last cached
// series is served marked stale; with nothing cached a synthetic series of the
// requested length is returned marked as mock data. Only invalid input errors.
func (s *Service) Kline(ctx context.Context, ref core.TokenRef, interval string, limit int) (core.KlineSeries, error) {
	ref, err := validateRef(ref)
	if err != nil {
		return core.KlineSeries{}, err
	}
	interval = strings.TrimSpace(interval)
	if interval == "" {
		interval = DefaultKlineInterval
	}
	if limit <= 0 {
		limit = DefaultKlineLimit
	}

	key := store.Key(core.CategoryKline, ref.Address, ref.Chain, interval, strconv.Itoa(limit))
	points, lookup, err := store.Compute(ctx, s.cache(), key, s.TTLs.TTL(core.CategoryKline), func(ctx context.Context) ([]core.KlinePoint, error) {
		match, err := s.fetch(ctx, core.CategoryKline, s.client().KlineCandidates(ref, interval, limit))
		if err != nil {
			return nil, err
		}
		return normalize.Klines(match.Payload), nil
	})
	s.logLookup(core.CategoryKline, key, lookup, err)
	if err == nil {
		return core.KlineSeries{Points: points, Stale: lookup == store.LookupStale}, nil
	}

	s.warn("Serving synthetic kline series",
		zap.String("address", ref.Address),
		zap.String("chain", ref.Chain),
		zap.String("interval", interval),
		zap.Int("limit", limit),
		zap.Error(err))
	return core.KlineSeries{
		Points: MockKlines(interval, limit, s.now(), s.random()),
		IsMock: true,
		Error:  err.Error(),
	}, nil
}

// Overview loads details, holders, transactions and risk for one token. The
// categories are independent, so they are fetched concurrently; each part
// still waits on its own pacing slot. Part failures are reported in Errors.
func (s *Service) Overview(ctx context.Context, ref core.TokenRef, txLimit int) (core.Overview, error) {
	ref, err := validateRef(ref)
	if err != nil {
		return core.Overview{}, err
	}

	overview := core.Overview{
		Token:        ref,
		Holders:      []core.HolderEntry{},
		Transactions: []core.TransactionEntry{},
		Risk:         core.RiskReport{},
	}

	var mu sync.Mutex
	failures := make(map[string]string)
	record := func(category core.Category, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		failures[string(category)] = err.Error()
		mu.Unlock()
	}

	p := pool.New()
	if s.OverviewConcurrency > 0 {
		p = p.WithMaxGoroutines(s.OverviewConcurrency)
	}
	p.Go(func() {
		details, err := s.TokenDetails(ctx, ref)
		record(core.CategoryTokenDetails, err)
		if err == nil {
			mu.Lock()
			overview.Details = &details
			mu.Unlock()
		}
	})
	p.Go(func() {
		holders, err := s.Holders(ctx, ref)
		record(core.CategoryHolders, err)
		mu.Lock()
		overview.Holders = holders
		mu.Unlock()
	})
	p.Go(func() {
		txs, err := s.Transactions(ctx, ref, txLimit, "")
		record(core.CategoryTransactions, err)
		mu.Lock()
		overview.Transactions = txs
		mu.Unlock()
	})
	p.Go(func() {
		report, err := s.Risk(ctx, ref)
		record(core.CategoryRisk, err)
		mu.Lock()
		overview.Risk = report
		mu.Unlock()
	})
	p.Wait()

	if len(failures) > 0 {
		overview.Errors = failures
	}
	overview.FetchedAt = s.now()
	return overview, nil
}

// PacingSnapshot exposes the pacer counters.
func (s *Service) PacingSnapshot() []core.PacingSnapshot {
	if s == nil || s.Pacer == nil {
		return nil
	}
	return s.Pacer.Snapshot()
}

func (s *Service) fetch(ctx context.Context, category core.Category, candidates []upstream.Candidate) (*upstream.Result, error) {
	if s.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is not configured")
	}
	for i := range candidates {
		candidates[i].Category = category
	}
	result, err := Run(ctx, s.Pacer, category, func(ctx context.Context) (*upstream.Result, error) {
		return s.Fetcher.FetchFirstMatch(ctx, candidates)
	})
	if err != nil {
		return nil, err
	}
	s.debug("Upstream payload matched",
		zap.String("category", string(category)),
		zap.String("candidate", result.Candidate),
		zap.String("shape", result.Shape.String()),
		zap.Int("attempt", result.Attempt))
	return result, nil
}

func (s *Service) logLookup(category core.Category, key string, lookup store.Lookup, err error) {
	switch {
	case lookup == store.LookupStale:
		s.warn("Serving stale cache entry",
			zap.String("category", string(category)),
			zap.String("key", key))
	case err != nil && !errors.Is(err, context.Canceled):
		s.warn("Upstream lookup failed",
			zap.String("category", string(category)),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *Service) client() *upstream.Client {
	if s.Fetcher != nil && s.Fetcher.Client != nil {
		return s.Fetcher.Client
	}
	return &upstream.Client{}
}

func (s *Service) cache() *store.Cache {
	return s.Cache
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields...)
	}
}

func (s *Service) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}

func (s *Service) random() func() float64 {
	if s.Random != nil {
		return s.Random
	}
	return rand.Float64
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func validateRef(ref core.TokenRef) (core.TokenRef, error) {
	ref.Address = strings.TrimSpace(ref.Address)
	ref.Chain = strings.TrimSpace(ref.Chain)
	if ref.Address == "" || ref.Chain == "" {
		return ref, fmt.Errorf("%w: missing required parameters: address and chain", ErrInvalidInput)
	}
	return ref, nil
}
