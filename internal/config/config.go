// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading layers defaults, an optional YAML file and HEROBOT_ env vars.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// StatsEndpoint is the GraphQL endpoint of the remote stats service.
	StatsEndpoint string `koanf:"stats_endpoint" validate:"required,url"`

	// StatsToken is the bearer credential forwarded on every query.
	StatsToken string `koanf:"stats_token" validate:"required"`

	// CatalogURL serves the hero list loaded once at startup.
	CatalogURL string `koanf:"catalog_url" validate:"required,url"`

	// WebhookURL receives command replies; empty means replies are logged.
	WebhookURL string `koanf:"webhook_url" validate:"omitempty,url"`

	// QueueSize bounds the in-memory command queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of command workers.
	WorkerCount int `koanf:"worker_count" validate:"min=1"`

	// DedupeSize sets the size of the command id cache.
	DedupeSize int `koanf:"dedupe_size" validate:"min=1"`

	// TopN caps every ranked matchup list.
	TopN int `koanf:"top_n" validate:"min=1"`

	// WinRateWindow is the number of leading periods in the win rate.
	WinRateWindow int `koanf:"win_rate_window" validate:"min=1"`

	// HTTPTimeout bounds outbound calls to the stats service, catalog and webhook.
	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gt=0"`

	// FuzzyThreshold is the minimum name similarity (0..1] of a fuzzy hero match.
	FuzzyThreshold float64 `koanf:"fuzzy_threshold" validate:"gt=0,lte=1"`
}

// New creates a Config with defaults. StatsToken has no default.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		StatsEndpoint:  "https://api.stratz.com/graphql",
		CatalogURL:     "https://api.opendota.com/api/heroes",
		QueueSize:      1_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     10_000,
		TopN:           5,
		WinRateWindow:  4,
		HTTPTimeout:    15 * time.Second,
		FuzzyThreshold: 0.7,
	}
}
