package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

// Transactions maps swap rows onto the tracked token's perspective: a swap is
// a buy when its output token is the tracked address. Rows from older
// endpoints that already carry the flattened field names are accepted too.
func Transactions(payload gjson.Result, ref core.TokenRef) []core.TransactionEntry {
	if !payload.IsArray() {
		return []core.TransactionEntry{}
	}
	tracked := strings.ToLower(strings.TrimSpace(ref.Address))

	rows := payload.Array()
	entries := make([]core.TransactionEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, transaction(row, tracked))
	}
	return entries
}

func transaction(row gjson.Result, tracked string) core.TransactionEntry {
	if !row.Get("to_token_address").Exists() && row.Get("is_buy").Exists() {
		return legacyTransaction(row)
	}

	toToken := strings.ToLower(row.Get("to_token_address").String())
	isBuy := toToken != "" && toToken == tracked

	tokenSide, mainSide := "from_token", "to_token"
	if isBuy {
		tokenSide, mainSide = "to_token", "from_token"
	}

	return core.TransactionEntry{
		TxHash:          String(row.Get("tx_hash"), ""),
		Timestamp:       Int(First(row, "tx_time", "timestamp")),
		FromAddr:        String(First(row, "wallet_address", "sender_address", "from_addr"), ""),
		ToAddr:          String(First(row, "recipient_address", "to_addr"), ""),
		IsBuy:           isBuy,
		TokenAmount:     Float(row.Get(tokenSide + "_amount")),
		TokenSymbol:     String(row.Get(tokenSide+"_symbol"), ""),
		EthAmount:       Float(row.Get(mainSide + "_amount")),
		MainTokenSymbol: String(row.Get(mainSide+"_symbol"), ""),
		USDAmount:       Float(First(row, "amount_usd", "usd_amount")),
		BlockNumber:     Int(row.Get("block_number")),
		AMM:             String(row.Get("amm"), ""),
		Chain:           String(row.Get("chain"), ""),
	}
}

func legacyTransaction(row gjson.Result) core.TransactionEntry {
	return core.TransactionEntry{
		TxHash:          String(row.Get("tx_hash"), ""),
		Timestamp:       Int(First(row, "timestamp", "tx_time")),
		FromAddr:        String(row.Get("from_addr"), ""),
		ToAddr:          String(row.Get("to_addr"), ""),
		IsBuy:           truthy(row.Get("is_buy")),
		TokenAmount:     Float(row.Get("token_amount")),
		TokenSymbol:     String(row.Get("token_symbol"), ""),
		EthAmount:       Float(row.Get("eth_amount")),
		MainTokenSymbol: String(row.Get("main_token_symbol"), ""),
		USDAmount:       Float(First(row, "usd_amount", "amount_usd")),
		BlockNumber:     Int(row.Get("block_number")),
		AMM:             String(row.Get("amm"), ""),
		Chain:           String(row.Get("chain"), ""),
	}
}
