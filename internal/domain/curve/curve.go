// Package curve samples a decay result into a plottable series.
package curve

import (
	"math"

	"github.com/okian/recovery/internal/domain/decay"
)

// Sampling bounds, in hours.
const (
	DefaultHorizonHours = 72.0
	DefaultStepHours    = 1.0
	MinHorizonHours     = 1.0
	MaxHorizonHours     = 720.0
	MinStepHours        = 0.25

	// maxPoints caps series length regardless of step.
	maxPoints = 4096
)

// Point is one sample of the remaining-load curve.
type Point struct {
	Hours float64 `json:"hours"`
	// Remaining is fatigue as a fraction of the original load.
	Remaining float64 `json:"remaining"`
	Recovered float64 `json:"recovered"`
	Threshold float64 `json:"threshold"`
}

// Series is a sampled curve plus the position of the "now" marker.
type Series struct {
	HorizonHours float64 `json:"horizon_hours"`
	StepHours    float64 `json:"step_hours"`
	Now          float64 `json:"now"`
	Threshold    float64 `json:"threshold"`
	Points       []Point `json:"points"`
}

// Bounds clamps horizon and step into the supported ranges. Zero values
// select the defaults.
func Bounds(horizonHours, stepHours float64) (float64, float64) {
	if horizonHours == 0 || math.IsNaN(horizonHours) {
		horizonHours = DefaultHorizonHours
	}
	if stepHours == 0 || math.IsNaN(stepHours) {
		stepHours = DefaultStepHours
	}
	horizonHours = math.Max(MinHorizonHours, math.Min(MaxHorizonHours, horizonHours))
	stepHours = math.Max(MinStepHours, math.Min(horizonHours, stepHours))
	if horizonHours/stepHours > maxPoints-1 {
		stepHours = horizonHours / (maxPoints - 1)
	}
	return horizonHours, stepHours
}

// Sample evaluates r at h = 0, step, 2*step ... up to and including horizon.
func Sample(r decay.Result, horizonHours, stepHours float64) Series {
	horizonHours, stepHours = Bounds(horizonHours, stepHours)

	n := int(math.Floor(horizonHours/stepHours+1e-9)) + 1
	s := Series{
		HorizonHours: horizonHours,
		StepHours:    stepHours,
		Now:          r.Inputs.HoursSince,
		Threshold:    r.ReadyFraction,
		Points:       make([]Point, 0, n),
	}
	for i := 0; i < n; i++ {
		h := float64(i) * stepHours
		remaining := r.FatigueFractionAt(h)
		s.Points = append(s.Points, Point{
			Hours:     h,
			Remaining: remaining,
			Recovered: 1 - remaining,
			Threshold: r.ReadyFraction,
		})
	}
	return s
}

// NowVisible reports whether the now marker falls inside the horizon.
func (s Series) NowVisible() bool {
	return s.Now >= 0 && s.Now <= s.HorizonHours
}

// ReadyAt returns the first sampled hour whose remaining load is at or below
// the threshold. ok is false when the horizon ends before that.
func (s Series) ReadyAt() (hours float64, ok bool) {
	for _, p := range s.Points {
		if p.Remaining <= p.Threshold {
			return p.Hours, true
		}
	}
	return 0, false
}

// Labels returns the x-axis values of the series.
func (s Series) Labels() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Hours
	}
	return out
}
