// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and RGTRACK_* env vars on top of those defaults.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is the badger directory. Empty runs the store in memory.
	DataDir string `koanf:"data_dir"`

	// CatalogPath optionally points at a JSON catalog (songs, charts) loaded at startup.
	CatalogPath string `koanf:"catalog_path"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of job workers.
	WorkerCount int `koanf:"worker_count"`

	// ImportConcurrency bounds how many scores of one import are converted at once.
	ImportConcurrency int `koanf:"import_concurrency"`

	// DedupeSize sets the size of the per-import scoreID dedupe set.
	DedupeSize int `koanf:"dedupe_size"`

	// WebhookURLs receive every emitted webhook event.
	WebhookURLs []string `koanf:"webhook_urls"`

	// WebhookTimeoutMS bounds a single delivery attempt.
	WebhookTimeoutMS int `koanf:"webhook_timeout_ms"`

	// WebhookRatePerSec caps outbound deliveries per target.
	WebhookRatePerSec float64 `koanf:"webhook_rate_per_sec"`

	// RateLimitPerMin caps import requests per client IP.
	RateLimitPerMin int `koanf:"rate_limit_per_min"`

	// CORSOrigins lists origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`

	// ARCAPIURL is the base URL of the ARC profile API. Empty disables the ARC class provider.
	ARCAPIURL string `koanf:"arc_api_url"`

	// MaxRecentLimit caps feed endpoints (recently achieved, imports).
	MaxRecentLimit int `koanf:"max_recent_limit"`

	// ServerVersion is reported by /healthz and status webhooks.
	ServerVersion string `koanf:"server_version"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		QueueSize:         10_000,
		WorkerCount:       runtime.NumCPU(),
		ImportConcurrency: 16,
		DedupeSize:        10_000,
		WebhookTimeoutMS:  5_000,
		WebhookRatePerSec: 10,
		RateLimitPerMin:   120,
		CORSOrigins:       []string{"*"},
		MaxRecentLimit:    100,
		ServerVersion:     "dev",
	}
}

// Validate checks the config for values the service cannot start with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.ImportConcurrency <= 0:
		return fmt.Errorf("%w: import_concurrency must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.WebhookRatePerSec <= 0:
		return fmt.Errorf("%w: webhook_rate_per_sec must be positive", ErrInvalidConfig)
	case c.MaxRecentLimit <= 0:
		return fmt.Errorf("%w: max_recent_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
