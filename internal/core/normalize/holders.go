package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Holders normalizes a holder list and fills in two-decimal percentages.
// Percentages already present upstream are kept; otherwise they are derived
// from each quantity's share of the list total. A zero total yields "0.00".
func Holders(payload gjson.Result) []core.HolderEntry {
	if !payload.IsArray() {
		return []core.HolderEntry{}
	}
	rows := payload.Array()
	if len(rows) == 0 {
		return []core.HolderEntry{}
	}

	quantities := make([]float64, len(rows))
	valid := make([]bool, len(rows))
	total := decimal.Zero
	for i, row := range rows {
		quantities[i], valid[i] = holderQuantity(row)
		if valid[i] {
			total = total.Add(decimal.NewFromFloat(quantities[i]))
		}
	}

	entries := make([]core.HolderEntry, 0, len(rows))
	for i, row := range rows {
		entry := core.HolderEntry{
			Address:    String(row.Get("address"), fmt.Sprintf("Unknown-%d", i)),
			Quantity:   "0",
			IsContract: isContract(row.Get("is_contract")),
			Mark:       String(First(row, "mark", "tag"), ""),
		}
		if valid[i] {
			entry.Quantity = formatFloat(quantities[i])
		}
		entry.Percent = holderPercent(row, quantities[i], valid[i], total)
		entries = append(entries, entry)
	}
	return entries
}

func holderPercent(row gjson.Result, quantity float64, valid bool, total decimal.Decimal) string {
	if total.IsZero() {
		return decimal.Zero.StringFixed(2)
	}
	for _, field := range []string{"percent", "percentage"} {
		value := row.Get(field)
		if !truthy(value) {
			continue
		}
		if f, ok := parseFloat(value); ok {
			return decimal.NewFromFloat(f).StringFixed(2)
		}
	}
	if !valid {
		return decimal.Zero.StringFixed(2)
	}
	return decimal.NewFromFloat(quantity).Div(total).Mul(hundred).StringFixed(2)
}

func holderQuantity(row gjson.Result) (float64, bool) {
	raw := First(row, "quantity", "balance", "amount_cur", "amount")
	if !raw.Exists() {
		return 0, true
	}
	if raw.Type == gjson.String {
		return parseFloatString(strings.ReplaceAll(raw.Str, ",", ""))
	}
	return parseFloat(raw)
}

func isContract(value gjson.Result) bool {
	switch value.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return value.Num == 1
	default:
		return false
	}
}
