// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading and validation errors wrap this package's sentinel kinds.
package config

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DefaultLanguage is used when a request names no language.
	DefaultLanguage string `koanf:"default_language"`

	// ThresholdsFile optionally overlays the built-in threshold table.
	ThresholdsFile string `koanf:"thresholds_file"`

	// TemplatesFile optionally replaces the built-in narrative templates.
	TemplatesFile string `koanf:"templates_file"`

	// OutlierBandDistance is the band distance from the mode beyond which a
	// subject is reported as an outlier.
	OutlierBandDistance int `koanf:"outlier_band_distance"`

	// MaxBatchSize caps the observations of one interpretation batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// ProviderTimeoutMS bounds each best-effort narrative provider call.
	ProviderTimeoutMS int `koanf:"provider_timeout_ms"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DefaultLanguage:     "en",
		OutlierBandDistance: 1,
		MaxBatchSize:        50_000,
		ProviderTimeoutMS:   2_000,
		CORSAllowedOrigins:  []string{"*"},
	}
}

// ProviderTimeout returns ProviderTimeoutMS as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.OutlierBandDistance < 1:
		return fmt.Errorf("%w: outlier_band_distance must be at least 1", ErrInvalidConfig)
	case c.MaxBatchSize < 1:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	case c.ProviderTimeoutMS < 1:
		return fmt.Errorf("%w: provider_timeout_ms must be positive", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	tag, err := language.Parse(c.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("%w: default_language %q: %w", ErrInvalidConfig, c.DefaultLanguage, err)
	}
	if _, conf := tag.Base(); conf != language.Exact {
		return fmt.Errorf("%w: default_language %q names no base language", ErrInvalidConfig, c.DefaultLanguage)
	}
	return nil
}
