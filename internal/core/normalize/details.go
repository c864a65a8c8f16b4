package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

// TokenDetails builds a detail record from a token payload; ref fills address
// and chain when the payload omits them.
func TokenDetails(payload gjson.Result, ref core.TokenRef) core.TokenDetails {
	appendix := Appendix(payload.Get("appendix"))
	return core.TokenDetails{
		Symbol:         String(payload.Get("symbol"), "N/A"),
		Name:           String(payload.Get("name"), "Unknown"),
		Address:        String(payload.Get("token"), ref.Address),
		Logo:           String(payload.Get("logo_url"), ""),
		Chain:          String(payload.Get("chain"), ref.Chain),
		Price:          Float(payload.Get("current_price_usd")),
		PriceChange:    Float(payload.Get("price_change_1d")),
		PriceChange24h: Float(payload.Get("price_change_24h")),
		Volume24h:      Float(payload.Get("tx_volume_u_24h")),
		MarketCap:      Float(payload.Get("market_cap")),
		TotalSupply:    Float(payload.Get("total")),
		Holders:        Int(payload.Get("holders")),
		Website:        String(appendix.Get("website"), ""),
		Twitter:        String(appendix.Get("twitter"), ""),
		Telegram:       String(appendix.Get("telegram"), ""),
		CreatedAt:      Int(payload.Get("created_at")),
		RiskScore:      Float(payload.Get("risk_score")),
		RiskLevel:      Float(payload.Get("risk_level")),
		LaunchAt:       Int(payload.Get("launch_at")),
		BuyTx:          Float(payload.Get("buy_tx")),
		SellTx:         Float(payload.Get("sell_tx")),
		LockedPercent:  Float(payload.Get("locked_percent")),
		BurnAmount:     Float(payload.Get("burn_amount")),
	}
}

// Appendix decodes the JSON document upstream embeds as a string field.
// Objects are accepted as-is; anything unparseable yields an empty result.
func Appendix(value gjson.Result) gjson.Result {
	switch {
	case value.IsObject():
		return value
	case value.Type == gjson.String && gjson.Valid(value.Str):
		parsed := gjson.Parse(value.Str)
		if parsed.IsObject() {
			return parsed
		}
	}
	return gjson.Result{}
}

// Risk returns the contract risk fields verbatim, or an empty report.
func Risk(payload gjson.Result) core.RiskReport {
	report := core.RiskReport{}
	if !payload.IsObject() {
		return report
	}
	if values, ok := payload.Value().(map[string]any); ok {
		for key, value := range values {
			report[key] = value
		}
	}
	return report
}
