package engine

import (
	"time"

	"github.com/tokenlens/tokenlens/internal/core"
)

// CachePolicy controls cache TTLs per data category.
type CachePolicy struct {
	SearchTTL       time.Duration
	KlineTTL        time.Duration
	TokenDetailsTTL time.Duration
	HoldersTTL      time.Duration
	TransactionsTTL time.Duration
	RiskTTL         time.Duration
}

func cachePolicyWithDefaults(policy CachePolicy) CachePolicy {
	if policy.SearchTTL == 0 {
		policy.SearchTTL = 5 * time.Minute
	}
	if policy.KlineTTL == 0 {
		policy.KlineTTL = 10 * time.Minute
	}
	if policy.TokenDetailsTTL == 0 {
		policy.TokenDetailsTTL = time.Minute
	}
	if policy.HoldersTTL == 0 {
		policy.HoldersTTL = 2 * time.Minute
	}
	if policy.TransactionsTTL == 0 {
		policy.TransactionsTTL = 30 * time.Second
	}
	if policy.RiskTTL == 0 {
		policy.RiskTTL = 10 * time.Minute
	}
	return policy
}

// CachePolicyFromMap builds a policy from category-keyed TTLs; unknown keys are ignored.
func CachePolicyFromMap(ttls map[string]time.Duration) CachePolicy {
	var policy CachePolicy
	for key, ttl := range ttls {
		switch core.Category(key) {
		case core.CategorySearch:
			policy.SearchTTL = ttl
		case core.CategoryKline:
			policy.KlineTTL = ttl
		case core.CategoryTokenDetails:
			policy.TokenDetailsTTL = ttl
		case core.CategoryHolders:
			policy.HoldersTTL = ttl
		case core.CategoryTransactions:
			policy.TransactionsTTL = ttl
		case core.CategoryRisk:
			policy.RiskTTL = ttl
		}
	}
	return policy
}

// TTL returns the freshness window for category.
func (p CachePolicy) TTL(category core.Category) time.Duration {
	p = cachePolicyWithDefaults(p)

	switch category {
	case core.CategorySearch:
		return p.SearchTTL
	case core.CategoryKline:
		return p.KlineTTL
	case core.CategoryTokenDetails:
		return p.TokenDetailsTTL
	case core.CategoryHolders:
		return p.HoldersTTL
	case core.CategoryTransactions:
		return p.TransactionsTTL
	case core.CategoryRisk:
		return p.RiskTTL
	default:
		return time.Minute
	}
}
