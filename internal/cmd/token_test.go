package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/internal/config"
	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/store"
	"github.com/tokenlens/tokenlens/internal/output"
)

func TestParseTokenRef(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    core.TokenRef
		wantErr bool
	}{
		{name: "address and chain", args: []string{"0xabc", "bsc"}, want: core.TokenRef{Address: "0xabc", Chain: "bsc"}},
		{name: "token id", args: []string{"0xabc-bsc"}, want: core.TokenRef{Address: "0xabc", Chain: "bsc"}},
		{name: "splits on last dash", args: []string{"So1-ana-solana"}, want: core.TokenRef{Address: "So1-ana", Chain: "solana"}},
		{name: "trims whitespace", args: []string{" 0xabc ", " eth "}, want: core.TokenRef{Address: "0xabc", Chain: "eth"}},
		{name: "missing chain", args: []string{"0xabc"}, wantErr: true},
		{name: "trailing dash", args: []string{"0xabc-"}, wantErr: true},
		{name: "leading dash", args: []string{"-bsc"}, wantErr: true},
		{name: "blank chain", args: []string{"0xabc", " "}, wantErr: true},
		{name: "no args", args: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTokenRef(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryOfKey(t *testing.T) {
	key := store.Key(core.CategoryHolders, "0xabc", "bsc")
	assert.Equal(t, "holders", categoryOfKey(key))
	assert.Equal(t, "plain", categoryOfKey("plain"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "search-pepe-coin", sanitizeFilename("search-PEPE coin"))
	assert.Equal(t, "holders-0xabc-bsc", sanitizeFilename("holders-0xabc-bsc"))
	assert.Equal(t, "output", sanitizeFilename("  ///  "))
}

func newOutputCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addOutputFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestWriteReportsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "search.json")
	cmd := newOutputCommand(t, "-o", "json", "--out", path)

	result := core.SearchResult{
		Keyword: "abc",
		Chain:   "all",
		Tokens:  []core.TokenSummary{{Token: "0xabc", Chain: "bsc", Symbol: "ABC"}},
	}
	require.NoError(t, writeReports(cmd, "search-abc", result, output.SearchReport(result)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol": "ABC"`)
	assert.Contains(t, string(data), `"keyword": "abc"`)
}

func TestWriteReportsToDirectory(t *testing.T) {
	dir := t.TempDir()
	cmd := newOutputCommand(t, "-o", "markdown", "--out-dir", dir)

	result := core.SearchResult{Keyword: "abc", Chain: "all", Tokens: []core.TokenSummary{}}
	require.NoError(t, writeReports(cmd, "search-ABC", result, output.SearchReport(result)))

	_, err := os.Stat(filepath.Join(dir, "search-abc.md"))
	require.NoError(t, err)
}

func TestWriteReportsRejectsConflictingTargets(t *testing.T) {
	dir := t.TempDir()
	cmd := newOutputCommand(t, "--out", filepath.Join(dir, "a.txt"), "--out-dir", dir)

	err := writeReports(cmd, "x", core.SearchResult{}, output.SearchReport(core.SearchResult{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestWriteReportsRejectsUnknownFormat(t *testing.T) {
	cmd := newOutputCommand(t, "-o", "xml")
	err := writeReports(cmd, "x", core.SearchResult{}, output.SearchReport(core.SearchResult{}))
	require.Error(t, err)
}

func TestNewTokenServiceAppliesRetrySettings(t *testing.T) {
	cfg := &config.Config{}
	cfg.Upstream.BaseURL = "http://127.0.0.1:1"
	cfg.Pacing.RateLimitBackoff = 3 * time.Second
	cfg.Pacing.CandidatePause = 7 * time.Second
	cfg.Pacing.Delays = map[string]int{"risk": 40}

	svc := newTokenService(cfg, nil)

	assert.Equal(t, 3*time.Second, svc.Pacer.Policy.RateLimitBackoff)
	assert.Equal(t, 7*time.Second, svc.Pacer.Policy.CandidatePause)
	assert.Equal(t, 3*time.Second, svc.Fetcher.Policy.RateLimitBackoff)
	assert.Equal(t, 7*time.Second, svc.Fetcher.Policy.CandidatePause)
	assert.Equal(t, 40*time.Millisecond, svc.Pacer.Delay(core.CategoryRisk))
}
