// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package config loads and validates Streamfinder configuration.
//
// Configuration is layered: struct defaults first, then an optional YAML file,
// then STREAMFINDER_-prefixed environment variables. Validation runs after
// merging so a partially configured deployment fails fast at startup.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Streamfinder server.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Sources     SourcesConfig     `koanf:"sources"`
	Aggregator  AggregatorConfig  `koanf:"aggregator"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	Training    TrainingConfig    `koanf:"training"`
	Monetize    MonetizeConfig    `koanf:"monetize"`
	API         APIConfig         `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SourceConfig holds settings shared by every external catalog client.
type SourceConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	APIKey  string `koanf:"api_key"`
}

// SourcesConfig holds per-provider catalog client settings.
type SourcesConfig struct {
	TMDB      SourceConfig `koanf:"tmdb"`
	Watchmode SourceConfig `koanf:"watchmode"`
	Streaming SourceConfig `koanf:"streaming"`
	JustWatch SourceConfig `koanf:"justwatch"`
}

// AggregatorConfig controls the availability fan-out and its cache.
type AggregatorConfig struct {
	// MaxConcurrency bounds simultaneous source calls system-wide.
	MaxConcurrency int `koanf:"max_concurrency" validate:"min=1"`

	// SourceTimeout is the per-source call budget. A timed-out source is
	// treated identically to a failed source.
	SourceTimeout time.Duration `koanf:"source_timeout" validate:"min=1s"`

	// BatchDelay is inserted between batches of a multi-title lookup to
	// respect external rate limits.
	BatchDelay time.Duration `koanf:"batch_delay" validate:"min=0"`

	// BatchSize overrides the batch size for multi-title lookups.
	// Zero means no override.
	BatchSize int `koanf:"batch_size" validate:"min=0"`

	// CacheTTL is how long a computed aggregate stays valid.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=1s"`
}

// EmbeddingConfig controls the embedding generator and scorer.
type EmbeddingConfig struct {
	// ModelVersion keys the embedding cache. Bumping it invalidates all
	// cached embeddings.
	ModelVersion string `koanf:"model_version" validate:"required"`

	// ModelPath points at trained encoder/scorer weights. When empty or
	// unreadable the closed-form fallback path is used.
	ModelPath string `koanf:"model_path"`

	// CacheTTL is how long computed embeddings stay cached.
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"min=1s"`
}

// TrainingConfig controls the ALS matrix factorization engine.
type TrainingConfig struct {
	Factors        int     `koanf:"factors" validate:"min=1"`
	Regularization float64 `koanf:"regularization" validate:"gt=0"`
	MaxIterations  int     `koanf:"max_iterations" validate:"min=1"`
	RMSEThreshold  float64 `koanf:"rmse_threshold" validate:"gt=0"`

	// Workers is the number of parallel workers for factor updates.
	Workers int `koanf:"workers" validate:"min=1"`
}

// MonetizeConfig controls affiliate link synthesis.
type MonetizeConfig struct {
	// RefTag is the generic tracking value appended for providers without
	// a known URL template.
	RefTag string `koanf:"ref_tag"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// defaultConfig returns a Config with all default values applied.
// Defaults are merged first, then overridden by file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8480,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Sources: SourcesConfig{
			TMDB:      SourceConfig{Enabled: true, URL: "https://api.themoviedb.org"},
			Watchmode: SourceConfig{Enabled: true, URL: "https://api.watchmode.com"},
			Streaming: SourceConfig{Enabled: true, URL: "https://streaming-availability.p.rapidapi.com"},
			JustWatch: SourceConfig{Enabled: true, URL: "https://apis.justwatch.com"},
		},
		Aggregator: AggregatorConfig{
			MaxConcurrency: 5,
			SourceTimeout:  10 * time.Second,
			BatchDelay:     250 * time.Millisecond,
			BatchSize:      0,
			CacheTTL:       30 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			ModelVersion: "v1",
			ModelPath:    "",
			CacheTTL:     1 * time.Hour,
		},
		Training: TrainingConfig{
			Factors:        16,
			Regularization: 0.05,
			MaxIterations:  200,
			RMSEThreshold:  1e-4,
			Workers:        4,
		},
		Monetize: MonetizeConfig{
			RefTag: "streamfinder",
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}

// Validate checks the configuration for invalid or inconsistent values.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// At least one catalog source must be enabled or every aggregate
	// would be empty with an all-false provenance map.
	if !c.Sources.TMDB.Enabled && !c.Sources.Watchmode.Enabled &&
		!c.Sources.Streaming.Enabled && !c.Sources.JustWatch.Enabled {
		return fmt.Errorf("config validation: at least one catalog source must be enabled")
	}

	return nil
}
