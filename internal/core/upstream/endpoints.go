package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

// KlineIntervals maps UI interval labels to upstream minute buckets.
var KlineIntervals = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
	"2h":  120,
	"4h":  240,
	"1d":  1440,
	"3d":  4320,
	"1w":  10080,
	"1M":  43200,
	"1y":  525600,
}

// IntervalMinutes resolves an interval label, defaulting to daily candles.
func IntervalMinutes(interval string) int {
	if minutes, ok := KlineIntervals[strings.TrimSpace(interval)]; ok {
		return minutes
	}
	return 1440
}

// TokenID joins an address and chain the way upstream path segments expect.
func TokenID(ref core.TokenRef) string {
	return ref.Address + "-" + ref.Chain
}

// TokenDetailCandidates lists the known token detail endpoints in priority order.
func (c *Client) TokenDetailCandidates(ref core.TokenRef) []Candidate {
	parse := func(body []byte) (Match, bool) { return Detect(body, TokenDetailShapes...) }
	return []Candidate{
		c.candidate("tokens/{id}", "tokens/"+pathSegment(TokenID(ref)), nil, parse),
		c.candidate("tokens?token=&chain=", "tokens", url.Values{"token": {ref.Address}, "chain": {ref.Chain}}, parse),
		c.candidate("token/{chain}/{address}", "token/"+pathSegment(ref.Chain)+"/"+pathSegment(ref.Address), nil, parse),
	}
}

// HolderCandidates lists the known holder ranking endpoints in priority order.
func (c *Client) HolderCandidates(ref core.TokenRef) []Candidate {
	parse := func(body []byte) (Match, bool) {
		match, ok := Detect(body, HolderShapes...)
		if !ok || !match.Payload.IsArray() {
			return Match{}, false
		}
		return match, true
	}
	return []Candidate{
		c.candidate("tokens/top100/{id}", "tokens/top100/"+pathSegment(TokenID(ref)), nil, parse),
		c.candidate("tokens/holders?token=&chain=", "tokens/holders", url.Values{"token": {ref.Address}, "chain": {ref.Chain}}, parse),
		c.candidate("token/{chain}/holders/{address}", "token/"+pathSegment(ref.Chain)+"/holders/"+pathSegment(ref.Address), nil, parse),
	}
}

// PairIDs lists the pair identifier spellings tried for transaction lookups.
func PairIDs(ref core.TokenRef) []string {
	address := strings.ToLower(ref.Address)
	chain := strings.ToLower(ref.Chain)
	return []string{
		address + "-" + chain,
		address + "_fo-" + chain,
		address,
		chain + "-" + address,
	}
}

// TransactionCandidates lists pair-based endpoints first, then the legacy ones.
func (c *Client) TransactionCandidates(ref core.TokenRef, limit int, toTime string) []Candidate {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if toTime != "" {
		query.Set("to_time", toTime)
	}

	pairParse := func(body []byte) (Match, bool) { return Detect(body, DetectNonEmptyDataTxs) }
	legacyParse := func(body []byte) (Match, bool) {
		match, ok := Detect(body, LegacyTransactionShapes...)
		if !ok || len(match.Payload.Array()) == 0 {
			return Match{}, false
		}
		return match, true
	}

	descriptions := []string{"txs/{address-chain}", "txs/{address_fo-chain}", "txs/{address}", "txs/{chain-address}"}
	candidates := make([]Candidate, 0, len(descriptions)+2)
	for i, pairID := range PairIDs(ref) {
		candidates = append(candidates, c.candidate(descriptions[i], "txs/"+pathSegment(pairID), query, pairParse))
	}

	legacyQuery := url.Values{"token": {ref.Address}, "chain": {ref.Chain}}
	for key, values := range query {
		legacyQuery[key] = values
	}
	candidates = append(candidates,
		c.candidate("transactions/latest", "transactions/latest", legacyQuery, legacyParse),
		c.candidate("tokens/txs", "tokens/txs", legacyQuery, legacyParse),
	)
	return candidates
}

// KlineCandidates lists the kline endpoint for the requested bucket and size.
func (c *Client) KlineCandidates(ref core.TokenRef, interval string, limit int) []Candidate {
	query := url.Values{
		"interval": {strconv.Itoa(IntervalMinutes(interval))},
		"size":     {strconv.Itoa(limit)},
	}
	parse := func(body []byte) (Match, bool) { return Detect(body, DetectDataPoints) }
	return []Candidate{
		c.candidate("klines/token/{id}", "klines/token/"+pathSegment(TokenID(ref)), query, parse),
	}
}

// RiskCandidates lists the contract risk endpoint. Any status==1 body is usable,
// even one without data.
func (c *Client) RiskCandidates(ref core.TokenRef) []Candidate {
	parse := func(body []byte) (Match, bool) {
		if !gjson.ValidBytes(body) {
			return Match{}, false
		}
		root := gjson.ParseBytes(body)
		if !statusOK(root) {
			return Match{}, false
		}
		return Match{Shape: ShapeStatusData, Payload: root.Get("data")}, true
	}
	return []Candidate{
		c.candidate("contracts/{id}", "contracts/"+pathSegment(TokenID(ref)), nil, parse),
	}
}

// SearchCandidates lists the keyword search endpoint. A well-formed body without
// results is a usable, empty answer.
func (c *Client) SearchCandidates(keyword, chain string) []Candidate {
	parse := func(body []byte) (Match, bool) {
		if !gjson.ValidBytes(body) {
			return Match{}, false
		}
		if match, ok := Detect(body, DetectStatusDataArray); ok {
			return match, true
		}
		return Match{Shape: ShapeUnknown}, true
	}
	return []Candidate{
		c.candidate("tokens?keyword=", "tokens", url.Values{"keyword": {keyword}, "chain": {chain}}, parse),
	}
}

func (c *Client) candidate(description, path string, query url.Values, parse func([]byte) (Match, bool)) Candidate {
	return Candidate{
		Description: description,
		Build: func(ctx context.Context) (*http.Request, error) {
			return c.NewRequest(ctx, path, query)
		},
		Parse: parse,
	}
}

func pathSegment(value string) string {
	return url.PathEscape(strings.TrimSpace(value))
}
