package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/engine"
	"github.com/tokenlens/tokenlens/internal/core/upstream"
	"github.com/tokenlens/tokenlens/internal/observability"
	"github.com/tokenlens/tokenlens/internal/output"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Query market data for a single token",
	Long: `Query market data for a single token.

A token is addressed as "<address> <chain>" or as a single "<address>-<chain>" id.`,
}

var tokenDetailsCmd = &cobra.Command{
	Use:   "details <address> [chain]",
	Short: "Show token details",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTokenRef(args)
		if err != nil {
			return err
		}
		details, err := tokenService().TokenDetails(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return writeReports(cmd, "details-"+upstream.TokenID(ref), details, output.DetailsReport(details))
	},
}

var tokenHoldersCmd = &cobra.Command{
	Use:   "holders <address> [chain]",
	Short: "Show the top holders of a token",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTokenRef(args)
		if err != nil {
			return err
		}
		holders, err := tokenService().Holders(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return writeReports(cmd, "holders-"+upstream.TokenID(ref), holders, output.HoldersReport(ref, holders))
	},
}

var tokenTxsCmd = &cobra.Command{
	Use:     "txs <address> [chain]",
	Aliases: []string{"transactions"},
	Short:   "Show recent swaps of a token",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTokenRef(args)
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		toTime, err := cmd.Flags().GetString("to-time")
		if err != nil {
			return err
		}
		txs, err := tokenService().Transactions(cmd.Context(), ref, limit, strings.TrimSpace(toTime))
		if err != nil {
			return err
		}
		return writeReports(cmd, "txs-"+upstream.TokenID(ref), txs, output.TransactionsReport(ref, txs))
	},
}

var tokenRiskCmd = &cobra.Command{
	Use:   "risk <address> [chain]",
	Short: "Show the contract risk report of a token",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTokenRef(args)
		if err != nil {
			return err
		}
		risk, err := tokenService().Risk(cmd.Context(), ref)
		if err != nil {
			return err
		}
		report := output.RiskReport(ref, risk)
		return writeReports(cmd, "risk-"+upstream.TokenID(ref), report.Value, report)
	},
}

var tokenKlineCmd = &cobra.Command{
	Use:   "kline <address> [chain]",
	Short: "Show price candles of a token",
	Long: `Show price candles of a token.

When the upstream has no candles, a synthetic series is returned and marked as mock data.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTokenRef(args)
		if err != nil {
			return err
		}
		interval, err := cmd.Flags().GetString("interval")
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		if _, ok := upstream.KlineIntervals[interval]; !ok {
			return fmt.Errorf("unsupported interval %q", interval)
		}
		series, err := tokenService().Kline(cmd.Context(), ref, interval, limit)
		if err != nil {
			return err
		}
		return writeReports(cmd, "kline-"+interval+"-"+upstream.TokenID(ref), series, output.KlineReport(ref, interval, series))
	},
}

var tokenOverviewCmd = &cobra.Command{
	Use:   "overview <address> [chain]",
	Short: "Show details, holders, swaps and risk together",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := parseTokenRef(args)
		if err != nil {
			return err
		}
		limit, err := cmd.Flags().GetInt("tx-limit")
		if err != nil {
			return err
		}
		overview, err := tokenService().Overview(cmd.Context(), ref, limit)
		if err != nil {
			return err
		}
		return writeReports(cmd, "overview-"+upstream.TokenID(ref), overview, output.OverviewReports(overview)...)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	for _, sub := range []*cobra.Command{tokenDetailsCmd, tokenHoldersCmd, tokenTxsCmd, tokenRiskCmd, tokenKlineCmd, tokenOverviewCmd} {
		addOutputFlags(sub)
		tokenCmd.AddCommand(sub)
	}

	tokenTxsCmd.Flags().Int("limit", engine.DefaultTransactionsLimit, "Number of swaps to return")
	tokenTxsCmd.Flags().String("to-time", "", "Only return swaps before this unix timestamp")

	tokenKlineCmd.Flags().String("interval", engine.DefaultKlineInterval, "Candle interval: 1m|5m|15m|30m|1h|2h|4h|1d|3d|1w|1M|1y")
	tokenKlineCmd.Flags().Int("limit", engine.DefaultKlineLimit, "Number of candles to return")

	tokenOverviewCmd.Flags().Int("tx-limit", engine.DefaultTransactionsLimit, "Number of swaps to include")
}

func tokenService() *engine.Service {
	return newTokenService(GetConfig(), observability.CLILogger)
}

// parseTokenRef accepts "<address> <chain>" or a single "<address>-<chain>".
func parseTokenRef(args []string) (core.TokenRef, error) {
	var ref core.TokenRef
	switch len(args) {
	case 2:
		ref = core.TokenRef{Address: strings.TrimSpace(args[0]), Chain: strings.TrimSpace(args[1])}
	case 1:
		id := strings.TrimSpace(args[0])
		idx := strings.LastIndex(id, "-")
		if idx <= 0 || idx == len(id)-1 {
			return core.TokenRef{}, fmt.Errorf("token %q must be given as <address> <chain> or <address>-<chain>", id)
		}
		ref = core.TokenRef{Address: id[:idx], Chain: id[idx+1:]}
	default:
		return core.TokenRef{}, fmt.Errorf("token address and chain are required")
	}

	if ref.Address == "" || ref.Chain == "" {
		return core.TokenRef{}, fmt.Errorf("token address and chain are required")
	}
	return ref, nil
}
