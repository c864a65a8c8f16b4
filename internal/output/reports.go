package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tokenlens/tokenlens/internal/core"
)

// SearchReport lists search hits.
func SearchReport(result core.SearchResult) *Report {
	report := &Report{
		Title:  fmt.Sprintf("Search: %s", result.Keyword),
		Header: []string{"Symbol", "Name", "Chain", "Token", "Price (USD)", "24h %", "Volume 24h", "Holders", "Risk"},
		Value:  result,
	}

	for _, token := range result.Tokens {
		report.Rows = append(report.Rows, []string{
			token.Symbol,
			token.Name,
			token.Chain,
			token.Token,
			formatNumber(token.CurrentPriceUSD),
			formatPercent(token.PriceChange24h),
			formatNumber(token.TxVolumeU24h),
			strconv.FormatInt(token.Holders, 10),
			formatNumber(token.RiskScore),
		})
	}

	switch {
	case result.Message != "":
		report.Footer = result.Message
	default:
		report.Footer = fmt.Sprintf("%d tokens", len(result.Tokens))
	}
	return report
}

// DetailsReport renders token details as field/value pairs.
func DetailsReport(details core.TokenDetails) *Report {
	report := &Report{
		Title:  fmt.Sprintf("%s (%s)", details.Symbol, details.Chain),
		Header: []string{"Field", "Value"},
		Value:  details,
	}

	add := func(field, value string) {
		report.Rows = append(report.Rows, []string{field, value})
	}
	add("Name", details.Name)
	add("Address", details.Address)
	add("Price", formatNumber(details.Price))
	add("Change 24h", formatPercent(details.PriceChange24h))
	add("Volume 24h", formatNumber(details.Volume24h))
	add("Market cap", formatNumber(details.MarketCap))
	add("Total supply", formatNumber(details.TotalSupply))
	add("Holders", strconv.FormatInt(details.Holders, 10))
	add("Risk score", formatNumber(details.RiskScore))
	add("Buy / sell tx", fmt.Sprintf("%s / %s", formatNumber(details.BuyTx), formatNumber(details.SellTx)))
	add("Locked", formatPercent(details.LockedPercent))
	add("Created", formatUnix(details.CreatedAt))
	add("Launched", formatUnix(details.LaunchAt))
	for _, link := range [][2]string{{"Website", details.Website}, {"Twitter", details.Twitter}, {"Telegram", details.Telegram}} {
		if link[1] != "" {
			add(link[0], link[1])
		}
	}
	return report
}

// HoldersReport ranks holders.
func HoldersReport(ref core.TokenRef, holders []core.HolderEntry) *Report {
	report := &Report{
		Title:  fmt.Sprintf("Holders: %s", refLabel(ref)),
		Header: []string{"#", "Address", "Quantity", "Percent", "Contract", "Mark"},
		Value:  holders,
		Footer: fmt.Sprintf("%d holders", len(holders)),
	}

	for i, holder := range holders {
		contract := ""
		if holder.IsContract {
			contract = "yes"
		}
		report.Rows = append(report.Rows, []string{
			strconv.Itoa(i + 1),
			holder.Address,
			holder.Quantity,
			holder.Percent + "%",
			contract,
			holder.Mark,
		})
	}
	return report
}

// TransactionsReport lists swaps newest first, as returned.
func TransactionsReport(ref core.TokenRef, txs []core.TransactionEntry) *Report {
	report := &Report{
		Title:  fmt.Sprintf("Transactions: %s", refLabel(ref)),
		Header: []string{"Time", "Side", "Amount", "Symbol", "Paid", "USD", "Tx"},
		Value:  txs,
		Footer: fmt.Sprintf("%d transactions", len(txs)),
	}

	for _, tx := range txs {
		side := "sell"
		if tx.IsBuy {
			side = "buy"
		}
		report.Rows = append(report.Rows, []string{
			formatUnix(tx.Timestamp),
			side,
			formatNumber(tx.TokenAmount),
			tx.TokenSymbol,
			strings.TrimSpace(formatNumber(tx.EthAmount) + " " + tx.MainTokenSymbol),
			formatNumber(tx.USDAmount),
			tx.TxHash,
		})
	}
	return report
}

// RiskReport lists upstream risk fields sorted by key.
func RiskReport(ref core.TokenRef, risk core.RiskReport) *Report {
	if risk == nil {
		risk = core.RiskReport{}
	}
	report := &Report{
		Title:  fmt.Sprintf("Risk: %s", refLabel(ref)),
		Header: []string{"Field", "Value"},
		Value:  risk,
	}

	keys := make([]string, 0, len(risk))
	for key := range risk {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		report.Rows = append(report.Rows, []string{key, formatAny(risk[key])})
	}
	if len(keys) == 0 {
		report.Footer = "no risk data"
	}
	return report
}

// KlineReport lists candles oldest first.
func KlineReport(ref core.TokenRef, interval string, series core.KlineSeries) *Report {
	report := &Report{
		Title:  fmt.Sprintf("Kline %s: %s", interval, refLabel(ref)),
		Header: []string{"Time", "Open", "High", "Low", "Close", "Volume"},
		Value:  series,
	}

	for _, point := range series.Points {
		report.Rows = append(report.Rows, []string{
			time.UnixMilli(point.Timestamp).UTC().Format(time.RFC3339),
			formatNumber(point.Open),
			formatNumber(point.High),
			formatNumber(point.Low),
			formatNumber(point.Close),
			formatNumber(point.Volume),
		})
	}

	notes := []string{fmt.Sprintf("%d candles", len(series.Points))}
	if series.IsMock {
		notes = append(notes, "mock data")
	}
	if series.Stale {
		notes = append(notes, "stale")
	}
	if series.Error != "" {
		notes = append(notes, series.Error)
	}
	report.Footer = strings.Join(notes, ", ")
	return report
}

// OverviewReports splits an overview into one report per section.
func OverviewReports(overview core.Overview) []*Report {
	var reports []*Report
	if overview.Details != nil {
		reports = append(reports, DetailsReport(*overview.Details))
	}
	reports = append(reports,
		HoldersReport(overview.Token, overview.Holders),
		TransactionsReport(overview.Token, overview.Transactions),
		RiskReport(overview.Token, overview.Risk),
	)

	if len(overview.Errors) > 0 {
		errs := &Report{
			Title:  "Errors",
			Header: []string{"Section", "Error"},
		}
		keys := make([]string, 0, len(overview.Errors))
		for key := range overview.Errors {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			errs.Rows = append(errs.Rows, []string{key, overview.Errors[key]})
		}
		reports = append(reports, errs)
	}
	return reports
}

// PacingReport lists per-category pacing counters.
func PacingReport(snapshots []core.PacingSnapshot) *Report {
	report := &Report{
		Title:  "Pacing",
		Header: []string{"Category", "Min delay", "Requests", "Last request"},
		Value:  snapshots,
	}

	for _, snapshot := range snapshots {
		last := "-"
		if !snapshot.LastRequestAt.IsZero() {
			last = snapshot.LastRequestAt.UTC().Format(time.RFC3339)
		}
		report.Rows = append(report.Rows, []string{
			string(snapshot.Category),
			snapshot.MinDelay.String(),
			strconv.Itoa(snapshot.Count),
			last,
		})
	}
	return report
}

func refLabel(ref core.TokenRef) string {
	if ref.Chain == "" {
		return ref.Address
	}
	return ref.Address + "-" + ref.Chain
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64) + "%"
}

func formatUnix(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
}

func formatAny(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
