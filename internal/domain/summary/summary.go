// Package summary turns a decay result into display-ready text.
package summary

import (
	"math"
	"strconv"

	"github.com/okian/recovery/internal/domain/decay"
)

const hoursPerDay = 24

// Explanation sentences.
const (
	ExplainReady    = "You’re past the threshold where another session should be comparatively efficient (in this model)."
	ExplainNotReady = "Remaining load is above the threshold. Waiting longer should increase the efficiency of your next session."
)

// Summary holds the rounded, clamped figures shown to a user.
type Summary struct {
	RecoveryPct      int    `json:"recovery_pct"`
	RemainingLoadPct int    `json:"remaining_load_pct"`
	ReadyThreshold   int    `json:"ready_threshold_pct"`
	TimeToRecover    string `json:"time_to_recover"`
	HalfLife         string `json:"half_life"`
	Ready            bool   `json:"ready"`
	Explanation      string `json:"explanation"`
}

// Build derives the display summary for r.
func Build(r decay.Result) Summary {
	s := Summary{
		RecoveryPct:      int(math.Round(clamp(r.RecoveryPercent, 0, 100))),
		RemainingLoadPct: int(math.Round(clamp(r.FatigueFractionNow, 0, 1) * 100)),
		ReadyThreshold:   int(math.Round(r.ReadyFraction * 100)),
		TimeToRecover:    FormatHours(r.HoursUntilReady),
		HalfLife:         FormatHours(r.HalfLifeHours()),
		Ready:            r.Ready(),
	}
	if s.Ready {
		s.Explanation = ExplainReady
	} else {
		s.Explanation = ExplainNotReady
	}
	return s
}

// FormatHours renders a duration as "<1h", whole hours below a day, or days
// with one decimal.
func FormatHours(hours float64) string {
	switch {
	case hours < 1:
		return "<1h"
	case hours < hoursPerDay:
		return strconv.FormatFloat(math.Round(hours), 'f', -1, 64) + "h"
	default:
		return strconv.FormatFloat(RoundTo(hours/hoursPerDay, 1), 'f', -1, 64) + "d"
	}
}

// RoundTo rounds x to the given number of decimal places.
func RoundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
