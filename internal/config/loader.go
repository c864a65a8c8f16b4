// Package config provides centralized configuration management for tokenlens.
// Configuration is layered:
// Layer 1: built-in defaults (SetDefaults)
// Layer 2: user config file (explicit path or discovered via app identity)
// Layer 3: environment variables and runtime overrides
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tokenlens/tokenlens/internal/appid"
	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/upstream"
)

// LegacyAPIKeyEnv is honoured when TOKENLENS_API_KEY is unset.
const LegacyAPIKeyEnv = "AVE_API_KEY"

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Upstream defaults
	v.SetDefault("upstream.base_url", upstream.DefaultBaseURL)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.timeout", "10s")

	// Pacing defaults; pacing.delays and cache.ttls have no defaults so
	// unset categories fall back to the engine's tables
	retry := upstream.DefaultRetryPolicy()
	v.SetDefault("pacing.rate_limit_backoff", retry.RateLimitBackoff.String())
	v.SetDefault("pacing.candidate_pause", retry.CandidatePause.String())
	v.SetDefault("pacing.file", "")

	// Inbound limiter defaults
	v.SetDefault("inbound.rps", 0)
	v.SetDefault("inbound.burst", 20)

	v.SetDefault("overview.concurrency", 4)
}

// Load reads configuration from file (or the discovered user config when
// file is empty), layers environment and runtime overrides on top, and
// decodes the result. It is safe to call again on reload.
func Load(ctx context.Context, file string, runtimeOverrides ...map[string]any) (*Config, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	SetDefaults(v)

	if file == "" {
		file = discoverConfigFile(identity)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	if key := strings.TrimSpace(os.Getenv(LegacyAPIKeyEnv)); key != "" {
		if err := v.MergeConfigMap(map[string]any{
			"upstream": map[string]any{"api_key": key},
		}); err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", LegacyAPIKeyEnv, err)
		}
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs(identity))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	for _, overrides := range append([]map[string]any{envOverrides}, runtimeOverrides...) {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if cfg.Pacing.File != "" {
		fileDelays, err := LoadPacingFile(cfg.Pacing.File)
		if err != nil {
			return nil, err
		}
		for category, delay := range fileDelays {
			cfg.Pacing.Delays[category] = delay
		}
	}

	setConfig(cfg)
	return cfg, nil
}

func decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Pacing.Delays = canonicalKeys(cfg.Pacing.Delays)
	cfg.Cache.TTLs = canonicalKeys(cfg.Cache.TTLs)
	cfg.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Upstream.BaseURL), "/")
	cfg.Upstream.APIKey = strings.TrimSpace(cfg.Upstream.APIKey)

	return cfg, nil
}

// LoadPacingFile reads a YAML map of category -> delay in milliseconds.
// The map may sit at the top level or under a "delays" key.
func LoadPacingFile(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pacing file: %w", err)
	}

	var doc struct {
		Delays map[string]int `yaml:"delays"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Delays) > 0 {
		return canonicalKeys(doc.Delays), nil
	}

	flat := map[string]int{}
	if err := yaml.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("failed to parse pacing file %s: %w", path, err)
	}
	return canonicalKeys(flat), nil
}

// canonicalKeys restores category spelling lost to viper's key lowercasing.
func canonicalKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for key, value := range in {
		out[CanonicalCategory(key)] = value
	}
	return out
}

// CanonicalCategory maps a case-insensitive category name onto its registered
// spelling; unknown names are returned trimmed.
func CanonicalCategory(name string) string {
	name = strings.TrimSpace(name)
	for _, category := range core.Categories {
		if strings.EqualFold(string(category), name) {
			return string(category)
		}
	}
	return name
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func discoverConfigFile(identity *appidentity.Identity) string {
	for _, path := range getUserConfigPaths(identity) {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	local := filepath.Join("config", "config.yaml")
	if st, err := os.Stat(local); err == nil && !st.IsDir() {
		return local
	}
	return ""
}

// getUserConfigPaths returns the XDG config file candidates for the app.
func getUserConfigPaths(identity *appidentity.Identity) []string {
	configName, binaryName := appNamesForPaths(identity)

	var legacyNames []string
	if binaryName != configName {
		legacyNames = append(legacyNames, binaryName)
	}
	return gfconfig.GetAppConfigPaths(configName, legacyNames...)
}

// getEnvSpecs maps {PREFIX}{NAME} environment variables to config paths.
func getEnvSpecs(identity *appidentity.Identity) []EnvVarSpec {
	prefix := "TOKENLENS_"
	if identity != nil && identity.EnvPrefix != "" {
		prefix = identity.EnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by the decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Upstream
		{Name: prefix + "BASE_URL", Path: []string{"upstream", "base_url"}, Type: EnvString},
		{Name: prefix + "API_KEY", Path: []string{"upstream", "api_key"}, Type: EnvString},
		{Name: prefix + "UPSTREAM_TIMEOUT", Path: []string{"upstream", "timeout"}, Type: EnvString},

		// Pacing
		{Name: prefix + "RATE_LIMIT_BACKOFF", Path: []string{"pacing", "rate_limit_backoff"}, Type: EnvString},
		{Name: prefix + "CANDIDATE_PAUSE", Path: []string{"pacing", "candidate_pause"}, Type: EnvString},
		{Name: prefix + "PACING_FILE", Path: []string{"pacing", "file"}, Type: EnvString},

		// Inbound limiter; rps is a float and decoded weakly from the string
		{Name: prefix + "INBOUND_RPS", Path: []string{"inbound", "rps"}, Type: EnvString},
		{Name: prefix + "INBOUND_BURST", Path: []string{"inbound", "burst"}, Type: EnvInt},

		{Name: prefix + "OVERVIEW_CONCURRENCY", Path: []string{"overview", "concurrency"}, Type: EnvInt},
	}
}

func appNamesForPaths(identity *appidentity.Identity) (configName string, binaryName string) {
	configName = "tokenlens"
	binaryName = "tokenlens"
	if identity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(identity.ConfigName) != "" {
		configName = identity.ConfigName
	}
	if strings.TrimSpace(identity.BinaryName) != "" {
		binaryName = identity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths(identityOrDefault())
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

func identityOrDefault() *appidentity.Identity {
	identity, err := appid.Get(context.Background())
	if err != nil {
		return nil
	}
	return identity
}
