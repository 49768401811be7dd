// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - All functions accept context.Context as the first parameter.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/recovery/internal/domain/curve"
	"github.com/okian/recovery/internal/domain/decay"
	"github.com/okian/recovery/internal/render/theme"
	"github.com/okian/recovery/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level" json:"log_level"`

	// LogFormat selects the log handler: text, json or pretty.
	LogFormat string `koanf:"log_format" yaml:"log_format" json:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`

	// Model parameters applied when a request does not override them.
	IntensityExponent float64 `koanf:"intensity_exponent" yaml:"intensity_exponent" json:"intensity_exponent"`
	BaseTauHours      float64 `koanf:"base_tau_hours" yaml:"base_tau_hours" json:"base_tau_hours"`
	TauPerIntensity   float64 `koanf:"tau_per_intensity" yaml:"tau_per_intensity" json:"tau_per_intensity"`
	ReadyFraction     float64 `koanf:"ready_fraction" yaml:"ready_fraction" json:"ready_fraction"`

	// Curve sampling.
	DefaultHorizonHours float64 `koanf:"default_horizon_hours" yaml:"default_horizon_hours" json:"default_horizon_hours"`
	MaxHorizonHours     float64 `koanf:"max_horizon_hours" yaml:"max_horizon_hours" json:"max_horizon_hours"`
	SampleStepHours     float64 `koanf:"sample_step_hours" yaml:"sample_step_hours" json:"sample_step_hours"`

	// RateLimitRPS is the per-process token refill rate. Zero disables limiting.
	RateLimitRPS   float64 `koanf:"rate_limit_rps" yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst" yaml:"rate_limit_burst" json:"rate_limit_burst"`

	// LiveEnabled mounts the /live websocket endpoint.
	LiveEnabled bool `koanf:"live_enabled" yaml:"live_enabled" json:"live_enabled"`

	// Theme names the chart palette served to the dashboard: light or dark.
	Theme string `koanf:"theme" yaml:"theme" json:"theme"`
}

// New creates a Config with defaults. The service default for the tau slope
// is the dashboard's 2.0 rather than the model's 4.0.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           logger.FormatText,
		Addr:                ":9080",
		IntensityExponent:   decay.DefaultIntensityExponent,
		BaseTauHours:        decay.DefaultBaseTauHours,
		TauPerIntensity:     decay.DashboardTauPerIntensity,
		ReadyFraction:       decay.DefaultReadyFraction,
		DefaultHorizonHours: curve.DefaultHorizonHours,
		MaxHorizonHours:     curve.MaxHorizonHours,
		SampleStepHours:     curve.DefaultStepHours,
		RateLimitRPS:        50,
		RateLimitBurst:      100,
		LiveEnabled:         true,
		Theme:               theme.NameLight,
	}
}

// Params returns the model parameters carried by the config.
func (c *Config) Params() decay.Params {
	return decay.NewParams(
		decay.WithIntensityExponent(c.IntensityExponent),
		decay.WithBaseTauHours(c.BaseTauHours),
		decay.WithTauPerIntensity(c.TauPerIntensity),
		decay.WithReadyFraction(c.ReadyFraction),
	)
}

// Validate checks the config for values the service cannot run with.
func (c *Config) Validate(_ context.Context) error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON, logger.FormatPretty:
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !(c.ReadyFraction > 0 && c.ReadyFraction < 1) {
		return fmt.Errorf("%w: ready_fraction must be in (0, 1), got %g", ErrInvalidConfig, c.ReadyFraction)
	}
	if !finitePositive(c.MaxHorizonHours) || c.MaxHorizonHours > curve.MaxHorizonHours {
		return fmt.Errorf("%w: max_horizon_hours must be in (0, %g], got %g", ErrInvalidConfig, curve.MaxHorizonHours, c.MaxHorizonHours)
	}
	if !finitePositive(c.DefaultHorizonHours) || c.DefaultHorizonHours > c.MaxHorizonHours {
		return fmt.Errorf("%w: default_horizon_hours must be in (0, max_horizon_hours], got %g", ErrInvalidConfig, c.DefaultHorizonHours)
	}
	if !finitePositive(c.SampleStepHours) {
		return fmt.Errorf("%w: sample_step_hours must be positive, got %g", ErrInvalidConfig, c.SampleStepHours)
	}
	if c.RateLimitRPS < 0 || math.IsNaN(c.RateLimitRPS) {
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate_limit_burst must be at least 1 when limiting", ErrInvalidConfig)
	}
	th, err := theme.ByName(c.Theme)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := th.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
