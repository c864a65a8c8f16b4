package normalize

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

func TestHoldersComputesPercentages(t *testing.T) {
	holders := Holders(gjson.Parse(`[{"address":"0x1","quantity":"30"},{"address":"0x2","balance":70}]`))
	require.Len(t, holders, 2)
	require.Equal(t, "30.00", holders[0].Percent)
	require.Equal(t, "70.00", holders[1].Percent)
	require.Equal(t, "30", holders[0].Quantity)
	require.Equal(t, "70", holders[1].Quantity)
}

func TestHoldersZeroTotal(t *testing.T) {
	holders := Holders(gjson.Parse(`[{"address":"0x1","quantity":"0"},{"quantity":0}]`))
	require.Len(t, holders, 2)
	for _, h := range holders {
		require.Equal(t, "0.00", h.Percent)
	}
	require.Equal(t, "Unknown-1", holders[1].Address)
}

func TestHoldersKeepsUpstreamPercentAndStripsCommas(t *testing.T) {
	holders := Holders(gjson.Parse(`[
		{"address":"0x1","amount_cur":"1,000","percent":"12.345","is_contract":1,"tag":"Pool"},
		{"address":"0x2","amount":"3,000","percentage":"bogus","is_contract":true}
	]`))
	require.Len(t, holders, 2)
	require.Equal(t, "1000", holders[0].Quantity)
	require.Equal(t, "12.35", holders[0].Percent)
	require.True(t, holders[0].IsContract)
	require.Equal(t, "Pool", holders[0].Mark)
	require.Equal(t, "75.00", holders[1].Percent)
	require.True(t, holders[1].IsContract)
}

func TestHoldersNonArray(t *testing.T) {
	require.Empty(t, Holders(gjson.Parse(`{"holders":"none"}`)))
}

func TestTokenDetailsDefaults(t *testing.T) {
	ref := core.TokenRef{Address: "0xabc", Chain: "bsc"}
	details := TokenDetails(gjson.Parse(`{"current_price_usd":"0.5x","holders":"42.9","appendix":"{\"website\":\"https://a.io\",\"twitter\":\"@a\"}"}`), ref)

	require.Equal(t, "N/A", details.Symbol)
	require.Equal(t, "Unknown", details.Name)
	require.Equal(t, "0xabc", details.Address)
	require.Equal(t, "bsc", details.Chain)
	require.InDelta(t, 0.5, details.Price, 1e-9)
	require.EqualValues(t, 42, details.Holders)
	require.Equal(t, "https://a.io", details.Website)
	require.Equal(t, "@a", details.Twitter)
	require.Empty(t, details.Telegram)
}

func TestTokenDetailsMalformedAppendix(t *testing.T) {
	details := TokenDetails(gjson.Parse(`{"symbol":"ABC","appendix":"{not json"}`), core.TokenRef{})
	require.Equal(t, "ABC", details.Symbol)
	require.Empty(t, details.Website)
}

func TestTransactionsPerspective(t *testing.T) {
	ref := core.TokenRef{Address: "0xABC", Chain: "bsc"}
	payload := gjson.Parse(`[
		{"tx_hash":"0x1","tx_time":1700000000,"wallet_address":"0xw","to_token_address":"0xabc","to_token_amount":"10","to_token_symbol":"ABC","from_token_amount":"1.5","from_token_symbol":"WBNB","amount_usd":"900","block_number":12,"amm":"pancake","chain":"bsc"},
		{"tx_hash":"0x2","tx_time":1700000001,"sender_address":"0xs","recipient_address":"0xr","to_token_address":"0xbnb","to_token_amount":"2","to_token_symbol":"WBNB","from_token_amount":"20","from_token_symbol":"ABC"}
	]`)

	txs := Transactions(payload, ref)
	require.Len(t, txs, 2)

	buy := txs[0]
	require.True(t, buy.IsBuy)
	require.InDelta(t, 10, buy.TokenAmount, 1e-9)
	require.Equal(t, "ABC", buy.TokenSymbol)
	require.InDelta(t, 1.5, buy.EthAmount, 1e-9)
	require.Equal(t, "WBNB", buy.MainTokenSymbol)
	require.Equal(t, "0xw", buy.FromAddr)
	require.Empty(t, buy.ToAddr)
	require.EqualValues(t, 12, buy.BlockNumber)

	sell := txs[1]
	require.False(t, sell.IsBuy)
	require.InDelta(t, 20, sell.TokenAmount, 1e-9)
	require.Equal(t, "ABC", sell.TokenSymbol)
	require.Equal(t, "0xs", sell.FromAddr)
	require.Equal(t, "0xr", sell.ToAddr)
}

func TestTransactionsLegacyRows(t *testing.T) {
	txs := Transactions(gjson.Parse(`[{"tx_hash":"0x9","timestamp":5,"from_addr":"0xf","is_buy":true,"token_amount":"3"}]`), core.TokenRef{Address: "0xabc"})
	require.Len(t, txs, 1)
	require.True(t, txs[0].IsBuy)
	require.EqualValues(t, 5, txs[0].Timestamp)
	require.Equal(t, "0xf", txs[0].FromAddr)
	require.InDelta(t, 3, txs[0].TokenAmount, 1e-9)
}

func TestKlinesMilliseconds(t *testing.T) {
	points := Klines(gjson.Parse(`[{"time":1700000000,"open":"1.0","high":"2","low":"0.5","close":"1.5","volume":"100"}]`))
	require.Len(t, points, 1)
	require.EqualValues(t, 1700000000000, points[0].Timestamp)
	require.InDelta(t, 2, points[0].High, 1e-9)
}

func TestSearchTokensNameFallbacks(t *testing.T) {
	result := SearchTokens(gjson.Parse(`[
		{"token":"0x1","symbol":"A","appendix":"{\"tokenName\":\"Alpha\"}","holders":"7"},
		{"token":"0x2","symbol":"B"},
		{"token":"0x3"}
	]`), "a", "")

	require.Equal(t, "all", result.Chain)
	require.Empty(t, result.Message)
	require.Len(t, result.Tokens, 3)
	require.Equal(t, "Alpha", result.Tokens[0].Name)
	require.EqualValues(t, 7, result.Tokens[0].Holders)
	require.Equal(t, "B", result.Tokens[1].Name)
	require.Equal(t, "Unknown Token", result.Tokens[2].Name)
	require.Equal(t, "0", result.Tokens[2].MarketCap)
}

func TestSearchTokensEmpty(t *testing.T) {
	result := SearchTokens(gjson.Result{}, "zzz", "eth")
	require.Empty(t, result.Tokens)
	require.Equal(t, NoMatchesMessage, result.Message)
	require.Equal(t, "eth", result.Chain)
}

func TestRiskCopiesFields(t *testing.T) {
	report := Risk(gjson.Parse(`{"is_honeypot":0,"owner":"0x1"}`))
	require.Equal(t, "0x1", report["owner"])
	require.Empty(t, Risk(gjson.Result{}))
}

func TestNormalizationIsIdempotent(t *testing.T) {
	raw := gjson.Parse(`[{"address":"0x1","quantity":"1,234.5"},{"address":"0x2","quantity":"765.5","mark":"dev"}]`)

	first, err := json.Marshal(Holders(raw))
	require.NoError(t, err)
	second, err := json.Marshal(Holders(raw))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFloatCoercion(t *testing.T) {
	require.InDelta(t, 12.5, Float(gjson.Parse(`"12.5abc"`)), 1e-9)
	require.Zero(t, Float(gjson.Parse(`"abc"`)))
	require.Zero(t, Float(gjson.Parse(`null`)))
	require.EqualValues(t, 3, Int(gjson.Parse(`"3.9"`)))
}
