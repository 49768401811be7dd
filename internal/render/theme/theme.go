// Package theme describes chart colours and derives shaded regions from them.
//
// A Theme is passed explicitly to whatever draws; nothing in this package
// holds mutable state.
package theme

import (
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Theme names.
const (
	NameLight = "light"
	NameDark  = "dark"
)

// Theme is the render context for a chart. Colours are #rrggbb hex strings.
type Theme struct {
	Name      string `json:"name"`
	Text      string `json:"text"`
	Muted     string `json:"muted"`
	Border    string `json:"border"`
	Curve     string `json:"curve"`
	Threshold string `json:"threshold"`
	Now       string `json:"now"`
	// Fatigued and Ready are the endpoints of the zone gradient.
	Fatigued string `json:"fatigued"`
	Ready    string `json:"ready"`
}

// Segment is a drawable band over a value range.
type Segment struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// Light returns the palette for light backgrounds.
func Light() Theme {
	return Theme{
		Name:      NameLight,
		Text:      "#101f38",
		Muted:     "#5b6577",
		Border:    "#dce0e5",
		Curve:     "#101f38",
		Threshold: "#5b6577",
		Now:       "#2196f3",
		Fatigued:  "#e57373",
		Ready:     "#8bc34a",
	}
}

// Dark returns the palette for dark backgrounds.
func Dark() Theme {
	return Theme{
		Name:      NameDark,
		Text:      "#f2f2f2",
		Muted:     "#9aa4b5",
		Border:    "#2a3850",
		Curve:     "#f2f2f2",
		Threshold: "#9aa4b5",
		Now:       "#4db6ac",
		Fatigued:  "#ff8a65",
		Ready:     "#8bc34a",
	}
}

// ByName returns the named theme. Unknown names yield an error and the
// light theme.
func ByName(name string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameLight:
		return Light(), nil
	case NameDark:
		return Dark(), nil
	default:
		return Light(), fmt.Errorf("unknown theme: %s", name)
	}
}

// Validate checks that every colour parses.
func (t Theme) Validate() error {
	for _, c := range []string{t.Text, t.Muted, t.Border, t.Curve, t.Threshold, t.Now, t.Fatigued, t.Ready} {
		if _, err := colorful.Hex(c); err != nil {
			return fmt.Errorf("theme %s: %w", t.Name, err)
		}
	}
	return nil
}

// Blend returns the colour at fraction f (0 = ready, 1 = fatigued) of the
// theme's zone gradient.
func (t Theme) Blend(f float64) string {
	ready, err := colorful.Hex(t.Ready)
	if err != nil {
		return t.Ready
	}
	fatigued, err := colorful.Hex(t.Fatigued)
	if err != nil {
		return t.Fatigued
	}
	switch {
	case f <= 0:
		return ready.Hex()
	case f >= 1:
		return fatigued.Hex()
	}
	return ready.BlendLab(fatigued, f).Clamped().Hex()
}

// Shade splits [lo, hi] into bands of equal height, each tinted with the
// gradient colour at the band's midpoint. Values are remaining-load
// fractions, so higher bands are closer to the fatigued colour.
func Shade(lo, hi float64, t Theme, bands int) []Segment {
	if bands < 1 {
		bands = 1
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi == lo {
		return []Segment{{From: lo, To: hi, Color: t.Blend(lo)}}
	}
	step := (hi - lo) / float64(bands)
	out := make([]Segment, 0, bands)
	for i := 0; i < bands; i++ {
		from := lo + float64(i)*step
		to := from + step
		if i == bands-1 {
			to = hi
		}
		out = append(out, Segment{From: from, To: to, Color: t.Blend((from + to) / 2)})
	}
	return out
}

// Zones splits the remaining-load axis at the ready threshold: [0, threshold]
// is the ready zone, (threshold, 1] the fatigued zone.
func Zones(threshold float64, t Theme) (ready, fatigued Segment) {
	threshold = math.Max(0, math.Min(1, threshold))
	return Segment{From: 0, To: threshold, Color: t.Ready},
		Segment{From: threshold, To: 1, Color: t.Fatigued}
}
