package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

// NoMatchesMessage accompanies an empty search result.
const NoMatchesMessage = "No tokens found matching your search"

// SearchTokens normalizes keyword search hits. A payload that is not a list
// yields an empty result carrying NoMatchesMessage.
func SearchTokens(payload gjson.Result, keyword, chain string) core.SearchResult {
	result := core.SearchResult{
		Tokens:  []core.TokenSummary{},
		Keyword: keyword,
		Chain:   chain,
	}
	if result.Chain == "" {
		result.Chain = "all"
	}
	if !payload.IsArray() {
		result.Message = NoMatchesMessage
		return result
	}

	for _, row := range payload.Array() {
		appendix := Appendix(row.Get("appendix"))
		symbol := row.Get("symbol")
		result.Tokens = append(result.Tokens, core.TokenSummary{
			Token:           String(row.Get("token"), ""),
			Chain:           String(row.Get("chain"), ""),
			Symbol:          String(symbol, ""),
			Name:            String(First(row, "name"), String(First(appendix, "tokenName"), String(symbol, "Unknown Token"))),
			LogoURL:         String(row.Get("logo_url"), ""),
			CurrentPriceUSD: Float(row.Get("current_price_usd")),
			PriceChange24h:  Float(row.Get("price_change_24h")),
			TxVolumeU24h:    Float(row.Get("tx_volume_u_24h")),
			Holders:         Int(row.Get("holders")),
			MarketCap:       String(row.Get("market_cap"), "0"),
			RiskScore:       Float(row.Get("risk_score")),
		})
	}
	return result
}
