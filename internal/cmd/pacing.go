package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/observability"
	"github.com/tokenlens/tokenlens/internal/output"
	"github.com/tokenlens/tokenlens/internal/server/handlers"
)

var pacingCmd = &cobra.Command{
	Use:   "pacing",
	Short: "Show per-category upstream pacing",
	Long: `Show per-category upstream pacing.

With --server the live counters of a running proxy are fetched from its
/api/pacing endpoint; otherwise the configured delays are shown.`,
	RunE: runPacing,
}

func init() {
	rootCmd.AddCommand(pacingCmd)

	pacingCmd.Flags().String("server", "", "Base URL of a running proxy (e.g. http://localhost:8080)")
	addOutputFlags(pacingCmd)
}

func runPacing(cmd *cobra.Command, args []string) error {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return err
	}

	var snapshots []core.PacingSnapshot
	if server = strings.TrimSpace(server); server != "" {
		snapshots, err = fetchPacing(cmd.Context(), server)
		if err != nil {
			return err
		}
	} else {
		snapshots = newTokenService(GetConfig(), observability.CLILogger).PacingSnapshot()
	}

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return writeReports(cmd, "pacing", snapshots, output.PacingReport(snapshots))
	}

	outPath, outDir, err := resolveOutputTargets(cmd)
	if err != nil {
		return err
	}
	if outDir != "" {
		dir, err := ensureOutDir(outDir)
		if err != nil {
			return err
		}
		outPath = filepath.Join(dir, "pacing."+outputExtension(format))
	}
	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	lines := []string{"Upstream Pacing", ""}
	for _, snapshot := range snapshots {
		last := "-"
		if !snapshot.LastRequestAt.IsZero() {
			last = snapshot.LastRequestAt.UTC().Format(time.RFC3339)
		}
		lines = append(lines, fmt.Sprintf("%s: min_delay=%s count=%d last=%s", snapshot.Category, snapshot.MinDelay, snapshot.Count, last))
	}
	_, _ = fmt.Fprint(sink.writer, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	return nil
}

func fetchPacing(ctx context.Context, server string) ([]core.PacingSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/api/pacing", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pacing: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch pacing: unexpected status %d", resp.StatusCode)
	}

	var body handlers.PacingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode pacing: %w", err)
	}

	snapshots := make([]core.PacingSnapshot, 0, len(body.Categories))
	for _, entry := range body.Categories {
		snapshot := core.PacingSnapshot{
			Category: core.Category(entry.Category),
			MinDelay: time.Duration(entry.MinDelayMS) * time.Millisecond,
		}
		snapshot.Count = entry.Count
		if entry.LastRequestAt != nil {
			snapshot.LastRequestAt = *entry.LastRequestAt
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}
