package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/internal/core/engine"
	"github.com/tokenlens/tokenlens/internal/observability"
	"github.com/tokenlens/tokenlens/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search tokens by keyword",
	Long:  "Search the upstream token index by symbol, name or address, optionally limited to one chain.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("chain", "", "Restrict results to a chain (e.g. eth, bsc, solana)")
	addOutputFlags(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := strings.TrimSpace(args[0])
	if keyword == "" {
		return fmt.Errorf("keyword is required")
	}

	chain, err := cmd.Flags().GetString("chain")
	if err != nil {
		return err
	}

	svc := newTokenService(GetConfig(), observability.CLILogger)
	result, err := svc.SearchTokens(cmd.Context(), keyword, strings.TrimSpace(chain))
	if err != nil {
		if errors.Is(err, engine.ErrMissingAPIKey) {
			return fmt.Errorf("%w: set %sAPI_KEY or upstream.api_key", err, GetAppIdentity().EnvPrefix)
		}
		return err
	}

	return writeReports(cmd, "search-"+keyword, result, output.SearchReport(result))
}
