package config

import (
	"time"
)

// Config represents the complete application configuration.
// Values are layered: built-in defaults, then the user config file,
// then TOKENLENS_* environment variables and runtime overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Pacing   PacingConfig   `mapstructure:"pacing"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Inbound  InboundConfig  `mapstructure:"inbound"`
	Overview OverviewConfig `mapstructure:"overview"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level (simple, structured)
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port; /metrics on the main
	// port proxies to it.
	Port int `mapstructure:"port"`
}

// UpstreamConfig describes the Ave.ai data API.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PacingConfig tunes the per-category request pacer.
type PacingConfig struct {
	// Delays overrides the minimum gap between upstream calls per category,
	// in milliseconds.
	Delays map[string]int `mapstructure:"delays"`

	// RateLimitBackoff is the wait before re-running a rate-limited call.
	RateLimitBackoff time.Duration `mapstructure:"rate_limit_backoff"`

	// CandidatePause is the wait after an upstream 429 before the next candidate.
	CandidatePause time.Duration `mapstructure:"candidate_pause"`

	// File is an optional YAML document of category -> milliseconds merged
	// over Delays.
	File string `mapstructure:"file"`
}

// CacheConfig holds per-category freshness windows.
type CacheConfig struct {
	TTLs map[string]time.Duration `mapstructure:"ttls"`
}

// InboundConfig limits requests per client on the /api routes.
// RPS 0 disables the limiter.
type InboundConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// OverviewConfig tunes the combined token overview fan-out.
type OverviewConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}
