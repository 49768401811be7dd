// Package types contains the wire shapes shared by the service, the HTTP
// API and the CLI client.
package types

import (
	"github.com/okian/recovery/internal/domain/curve"
	"github.com/okian/recovery/internal/domain/decay"
	"github.com/okian/recovery/internal/domain/summary"
)

// EstimateRequest carries one workout plus optional model overrides.
// Nil parameter fields fall back to the service defaults.
type EstimateRequest struct {
	Intensity   float64 `json:"intensity" yaml:"intensity"`
	DurationMin float64 `json:"duration_min" yaml:"duration_min"`
	HoursSince  float64 `json:"hours_since" yaml:"hours_since"`

	ReadyFraction     *float64 `json:"ready_fraction,omitempty" yaml:"ready_fraction,omitempty"`
	IntensityExponent *float64 `json:"intensity_exponent,omitempty" yaml:"intensity_exponent,omitempty"`
	BaseTauHours      *float64 `json:"base_tau_hours,omitempty" yaml:"base_tau_hours,omitempty"`
	TauPerIntensity   *float64 `json:"tau_per_intensity,omitempty" yaml:"tau_per_intensity,omitempty"`

	HorizonHours float64 `json:"horizon_hours,omitempty" yaml:"horizon_hours,omitempty"`
	StepHours    float64 `json:"step_hours,omitempty" yaml:"step_hours,omitempty"`
	IncludeCurve bool    `json:"include_curve,omitempty" yaml:"include_curve,omitempty"`
}

// Inputs returns the workout portion of the request.
func (r EstimateRequest) Inputs() decay.Inputs {
	return decay.Inputs{
		Intensity:   r.Intensity,
		DurationMin: r.DurationMin,
		HoursSince:  r.HoursSince,
	}
}

// ApplyTo overlays the request's parameter overrides onto base.
func (r EstimateRequest) ApplyTo(base decay.Params) decay.Params {
	var opts []decay.Option
	if r.ReadyFraction != nil {
		opts = append(opts, decay.WithReadyFraction(*r.ReadyFraction))
	}
	if r.IntensityExponent != nil {
		opts = append(opts, decay.WithIntensityExponent(*r.IntensityExponent))
	}
	if r.BaseTauHours != nil {
		opts = append(opts, decay.WithBaseTauHours(*r.BaseTauHours))
	}
	if r.TauPerIntensity != nil {
		opts = append(opts, decay.WithTauPerIntensity(*r.TauPerIntensity))
	}
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// EstimateResponse is the outcome of one estimation.
type EstimateResponse struct {
	Result  decay.Result    `json:"result"`
	Summary summary.Summary `json:"summary"`
	Curve   *curve.Series   `json:"curve,omitempty"`
}

// Zone is a shaded band of the chart's y axis.
type Zone struct {
	Name  string  `json:"name"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// CurveResponse is what a chart needs to draw one estimate.
type CurveResponse struct {
	Series  curve.Series    `json:"series"`
	Summary summary.Summary `json:"summary"`
	Zones   []Zone          `json:"zones"`
	// Gradient shades the area under the curve from fatigued to ready.
	Gradient []Zone `json:"gradient"`
	Theme    string `json:"theme"`
}

// Float64 returns a pointer to v, for building requests with overrides.
func Float64(v float64) *float64 { return &v }
