// Package decay implements the single-exponential fatigue decay model.
//
// A workout produces a load that grows linearly with duration and
// super-linearly with intensity. Fatigue then decays from that load with a
// time constant that lengthens for harder sessions. The model estimates
// short-term "efficiency readiness"; it does not model performance,
// adaptation or supercompensation.
//
// Evaluate is pure: it never fails on numeric input and keeps no state
// between calls.
package decay

import "math"

// Input bounds.
const (
	MinIntensity     = 1.0
	MaxIntensity     = 5.0
	MinDurationMin   = 0.0
	MaxDurationMin   = 10000.0
	MinHoursSince    = 0.0
	MaxHoursSince    = 10000.0
	MinReadyFraction = 0.01
	MaxReadyFraction = 0.99

	// minTargetFatigue keeps the inverse solve away from ln(0).
	minTargetFatigue = 1e-12
)

// Inputs describes a single workout and how long ago it ended.
type Inputs struct {
	// Intensity is a coarse, user-estimated scale from 1 to 5.
	Intensity   float64 `json:"intensity"`
	DurationMin float64 `json:"duration_min"`
	HoursSince  float64 `json:"hours_since"`
}

// Clamped returns a copy of in with every field forced into its valid range.
func (in Inputs) Clamped() Inputs {
	return Inputs{
		Intensity:   clamp(in.Intensity, MinIntensity, MaxIntensity),
		DurationMin: clamp(in.DurationMin, MinDurationMin, MaxDurationMin),
		HoursSince:  clamp(in.HoursSince, MinHoursSince, MaxHoursSince),
	}
}

// Result is the read-only outcome of one evaluation.
type Result struct {
	Inputs Inputs `json:"inputs"`
	Params Params `json:"params"`

	Load     float64 `json:"load"`
	TauHours float64 `json:"tau_hours"`

	FatigueNow         float64 `json:"fatigue_now"`
	FatigueFractionNow float64 `json:"fatigue_fraction_now"`
	// RecoveryFractionNow is 1 - FatigueFractionNow.
	RecoveryFractionNow float64 `json:"recovery_fraction_now"`
	// RecoveryPercent is not clamped; callers clamp for display.
	RecoveryPercent float64 `json:"recovery_percent"`

	ReadyFraction float64 `json:"ready_fraction"`
	ReadyFatigue  float64 `json:"ready_fatigue"`
	// HoursToReady is measured from the end of the workout.
	HoursToReady float64 `json:"hours_to_ready"`
	// HoursUntilReady is measured from now and never negative.
	HoursUntilReady float64 `json:"hours_until_ready"`
}

// Evaluate runs the model for one workout.
func Evaluate(in Inputs, p Params) Result {
	in = in.Clamped()
	p = p.Effective()

	r := Result{
		Inputs:        in,
		Params:        p,
		Load:          in.DurationMin * math.Pow(in.Intensity, p.IntensityExponent),
		TauHours:      p.BaseTauHours + p.TauPerIntensity*in.Intensity,
		ReadyFraction: p.ReadyFraction,
	}

	r.FatigueNow = r.FatigueAt(in.HoursSince)
	if r.Load > 0 {
		r.FatigueFractionNow = r.FatigueNow / r.Load
	}
	r.RecoveryFractionNow = 1 - r.FatigueFractionNow
	r.RecoveryPercent = r.RecoveryFractionNow * 100

	r.ReadyFatigue = r.Load * p.ReadyFraction
	r.HoursToReady = r.HoursToReachFatigue(r.ReadyFatigue)
	r.HoursUntilReady = math.Max(0, r.HoursToReady-in.HoursSince)

	return r
}

// FatigueAt returns the remaining fatigue t hours after the workout. A
// non-positive time constant clears fatigue immediately.
func (r Result) FatigueAt(hours float64) float64 {
	if r.Load <= 0 || r.TauHours <= 0 {
		return 0
	}
	return r.Load * math.Exp(-hours/r.TauHours)
}

// FatigueFractionAt returns FatigueAt(hours) as a fraction of the load, or 0
// when there is no load.
func (r Result) FatigueFractionAt(hours float64) float64 {
	if r.Load <= 0 {
		return 0
	}
	return r.FatigueAt(hours) / r.Load
}

// HoursToReachFatigue solves FatigueAt(t) == target for t. Targets above the
// load resolve to 0 and targets at or below zero resolve to the time needed
// to reach 1e-12.
func (r Result) HoursToReachFatigue(target float64) float64 {
	if r.Load <= 0 || r.TauHours <= 0 {
		return 0
	}
	t := clamp(target, minTargetFatigue, r.Load)
	return -r.TauHours * math.Log(t/r.Load)
}

// HalfLifeHours is the time for fatigue to halve.
func (r Result) HalfLifeHours() float64 {
	return r.TauHours * math.Ln2
}

// Ready reports whether the ready threshold has been crossed.
func (r Result) Ready() bool {
	return r.HoursUntilReady <= 0
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
