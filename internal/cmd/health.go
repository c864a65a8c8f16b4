package cmd

import (
	"net/url"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/tokenlens/tokenlens/internal/errors"
	"github.com/tokenlens/tokenlens/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify version metadata, configuration and upstream settings before starting the proxy.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Info("✅ Version information available", zap.String("version", versionInfo.Version))

		cfg := GetConfig()
		if cfg == nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration not loaded", errwrap.NewConfigInvalidError("Configuration not loaded"))
			return
		}
		logger.Info("✅ Configuration loaded")

		parsed, err := url.Parse(cfg.Upstream.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Upstream base URL is invalid", errwrap.NewConfigInvalidError("upstream.base_url must be an absolute URL"))
			return
		}
		logger.Info("✅ Upstream base URL valid", zap.String("upstream", cfg.Upstream.BaseURL))

		if cfg.Upstream.APIKey == "" {
			logger.Warn("⚠️  Upstream API key not configured; token search will be refused")
		} else {
			logger.Info("✅ Upstream API key configured")
		}

		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
