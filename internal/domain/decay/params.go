package decay

import (
	"fmt"
	"math"
)

// Default model parameters.
const (
	DefaultIntensityExponent = 1.25
	DefaultBaseTauHours      = 14.0
	DefaultTauPerIntensity   = 4.0
	DefaultReadyFraction     = 0.25

	// DashboardTauPerIntensity is the slope used by the interactive chart.
	// It recovers faster than the model default.
	DashboardTauPerIntensity = 2.0
)

// Params holds the tunable model assumptions.
type Params struct {
	IntensityExponent float64 `json:"intensity_exponent" yaml:"intensity_exponent"`
	BaseTauHours      float64 `json:"base_tau_hours" yaml:"base_tau_hours"`
	// TauPerIntensity lengthens recovery for harder sessions.
	TauPerIntensity float64 `json:"tau_per_intensity" yaml:"tau_per_intensity"`
	ReadyFraction   float64 `json:"ready_fraction" yaml:"ready_fraction"`
}

// Option applies a configuration option to Params.
type Option func(*Params)

// WithIntensityExponent sets the exponent applied to intensity.
func WithIntensityExponent(exp float64) Option {
	return func(p *Params) {
		p.IntensityExponent = exp
	}
}

// WithBaseTauHours sets the time constant at zero intensity.
func WithBaseTauHours(hours float64) Option {
	return func(p *Params) {
		p.BaseTauHours = hours
	}
}

// WithTauPerIntensity sets how many hours each intensity point adds to tau.
func WithTauPerIntensity(hours float64) Option {
	return func(p *Params) {
		p.TauPerIntensity = hours
	}
}

// WithReadyFraction sets the remaining-load fraction treated as ready.
func WithReadyFraction(fraction float64) Option {
	return func(p *Params) {
		p.ReadyFraction = fraction
	}
}

// DefaultParams returns the model defaults.
func DefaultParams() Params {
	return Params{
		IntensityExponent: DefaultIntensityExponent,
		BaseTauHours:      DefaultBaseTauHours,
		TauPerIntensity:   DefaultTauPerIntensity,
		ReadyFraction:     DefaultReadyFraction,
	}
}

// NewParams builds Params from the defaults and the given options.
func NewParams(opts ...Option) Params {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Effective returns p with ReadyFraction clamped into [0.01, 0.99]. The zero
// Params selects the defaults.
func (p Params) Effective() Params {
	if p == (Params{}) {
		p = DefaultParams()
	}
	p.ReadyFraction = clamp(p.ReadyFraction, MinReadyFraction, MaxReadyFraction)
	return p
}

// Validate checks that p describes a decaying curve. Evaluate does not call
// it; it is meant for callers accepting parameters from outside.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"intensity_exponent": p.IntensityExponent,
		"base_tau_hours":     p.BaseTauHours,
		"tau_per_intensity":  p.TauPerIntensity,
		"ready_fraction":     p.ReadyFraction,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidParams, name)
		}
	}
	switch {
	case p.IntensityExponent <= 0:
		return fmt.Errorf("%w: intensity_exponent must be positive", ErrInvalidParams)
	case p.BaseTauHours <= 0:
		return fmt.Errorf("%w: base_tau_hours must be positive", ErrInvalidParams)
	case p.TauPerIntensity < 0:
		return fmt.Errorf("%w: tau_per_intensity must not be negative", ErrInvalidParams)
	}
	return nil
}
