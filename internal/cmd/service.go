package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/tokenlens/tokenlens/internal/config"
	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/engine"
	"github.com/tokenlens/tokenlens/internal/core/store"
	"github.com/tokenlens/tokenlens/internal/core/upstream"
	"github.com/tokenlens/tokenlens/internal/metrics"
)

// newTokenService wires the engine from configuration. Metric hooks are
// no-ops until observability.InitMetrics has run, so the CLI commands share
// this builder with serve.
func newTokenService(cfg *config.Config, logger *logging.Logger) *engine.Service {
	policy := upstream.DefaultRetryPolicy()
	if cfg.Pacing.RateLimitBackoff > 0 {
		policy.RateLimitBackoff = cfg.Pacing.RateLimitBackoff
	}
	if cfg.Pacing.CandidatePause >= 0 {
		policy.CandidatePause = cfg.Pacing.CandidatePause
	}

	client := &upstream.Client{
		BaseURL: cfg.Upstream.BaseURL,
		APIKey:  cfg.Upstream.APIKey,
		Timeout: cfg.Upstream.Timeout,
	}

	fetcher := &upstream.Fetcher{
		Client: client,
		Policy: policy,
		OnAttempt: func(attempt upstream.Attempt) {
			metrics.RecordUpstreamAttempt(string(attempt.Category), attempt.StatusCode, attempt.Outcome == upstream.OutcomeMatched, attempt.Duration)
			if logger != nil && attempt.Outcome != upstream.OutcomeMatched && !errors.Is(attempt.Err, context.Canceled) {
				logger.Debug("Upstream candidate missed",
					zap.String("category", string(attempt.Category)),
					zap.String("candidate", attempt.Candidate),
					zap.String("outcome", string(attempt.Outcome)),
					zap.Int("status", attempt.StatusCode),
					zap.Duration("duration", attempt.Duration))
			}
		},
	}

	pacer := &engine.Pacer{
		Policy: policy,
		OnWait: func(category core.Category, wait time.Duration) {
			metrics.RecordPacerWait(string(category), wait)
		},
	}
	pacer.ApplyOverrides(cfg.Pacing.Delays)

	cache := store.NewCache()
	cache.OnEvent = func(event store.Event) {
		metrics.RecordCacheLookup(categoryOfKey(event.Key), string(event.Lookup))
		if event.Lookup == store.LookupMiss && event.Err == nil {
			metrics.SetCacheEntries(cache.Len())
		}
	}

	return &engine.Service{
		Fetcher:             fetcher,
		Pacer:               pacer,
		Cache:               cache,
		TTLs:                engine.CachePolicyFromMap(cfg.Cache.TTLs),
		Logger:              logger,
		OverviewConcurrency: cfg.Overview.Concurrency,
	}
}

// categoryOfKey recovers the category prefix of a store.Key.
func categoryOfKey(key string) string {
	category, _, _ := strings.Cut(key, store.KeySeparator)
	return category
}
