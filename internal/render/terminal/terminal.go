// Package terminal draws a remaining-load series as a text chart.
package terminal

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/recovery/internal/domain/curve"
	"github.com/okian/recovery/internal/render/theme"
)

// Default chart size in cells.
const (
	DefaultWidth  = 60
	DefaultHeight = 12
	minWidth      = 10
	minHeight     = 4
)

// Glyphs.
const (
	glyphCurve     = "•"
	glyphThreshold = "┄"
	glyphNow       = "│"
	glyphEmpty     = " "
	glyphAxis      = "┤"
)

// Context is everything Render needs besides the data.
type Context struct {
	Theme  theme.Theme
	Width  int
	Height int
	// Color enables ANSI styling. Plain text is produced when false.
	Color bool
}

// NewContext returns a Context with the default size.
func NewContext(t theme.Theme, color bool) Context {
	return Context{Theme: t, Width: DefaultWidth, Height: DefaultHeight, Color: color}
}

type styles struct {
	fatigued  lipgloss.Style
	ready     lipgloss.Style
	threshold lipgloss.Style
	now       lipgloss.Style
	muted     lipgloss.Style
}

func newStyles(ctx Context) styles {
	if !ctx.Color {
		plain := lipgloss.NewStyle()
		return styles{fatigued: plain, ready: plain, threshold: plain, now: plain, muted: plain}
	}
	fg := func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	}
	return styles{
		fatigued:  fg(ctx.Theme.Fatigued).Bold(true),
		ready:     fg(ctx.Theme.Ready).Bold(true),
		threshold: fg(ctx.Theme.Threshold),
		now:       fg(ctx.Theme.Now),
		muted:     fg(ctx.Theme.Muted),
	}
}

func (s styles) render(st lipgloss.Style, text string, color bool) string {
	if !color {
		return text
	}
	return st.Render(text)
}

// Render draws s into a multi-line string. The y axis is remaining load from
// 100% at the top to 0% at the bottom; the x axis spans the series horizon.
func Render(ctx Context, s curve.Series) string {
	width := max(ctx.Width, minWidth)
	height := max(ctx.Height, minHeight)
	st := newStyles(ctx)

	if len(s.Points) == 0 {
		return st.render(st.muted, "(no data)", ctx.Color) + "\n"
	}

	rowOf := func(v float64) int {
		v = math.Max(0, math.Min(1, v))
		return int(math.Round((1 - v) * float64(height-1)))
	}
	thresholdRow := rowOf(s.Threshold)

	curveRows := make([]int, width)
	values := make([]float64, width)
	for col := 0; col < width; col++ {
		h := s.HorizonHours * float64(col) / float64(width-1)
		values[col] = valueAt(s, h)
		curveRows[col] = rowOf(values[col])
	}

	nowCol := -1
	if s.NowVisible() && s.HorizonHours > 0 {
		nowCol = int(math.Round(s.Now / s.HorizonHours * float64(width-1)))
	}

	var b strings.Builder
	for row := 0; row < height; row++ {
		b.WriteString(st.render(st.muted, axisLabel(row, height), ctx.Color))
		b.WriteString(st.render(st.muted, glyphAxis, ctx.Color))
		for col := 0; col < width; col++ {
			switch {
			case curveRows[col] == row:
				style := st.fatigued
				if values[col] <= s.Threshold {
					style = st.ready
				}
				b.WriteString(st.render(style, glyphCurve, ctx.Color))
			case col == nowCol:
				b.WriteString(st.render(st.now, glyphNow, ctx.Color))
			case row == thresholdRow:
				b.WriteString(st.render(st.threshold, glyphThreshold, ctx.Color))
			default:
				b.WriteString(glyphEmpty)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat(" ", 4))
	b.WriteString(st.render(st.muted, "└"+strings.Repeat("─", width), ctx.Color))
	b.WriteString("\n")
	b.WriteString(st.render(st.muted, xAxisLabels(s.HorizonHours, width), ctx.Color))
	b.WriteString("\n")
	return b.String()
}

// Legend describes the glyphs used by Render.
func Legend(ctx Context, s curve.Series) string {
	st := newStyles(ctx)
	parts := []string{
		st.render(st.fatigued, glyphCurve, ctx.Color) + " remaining load",
		st.render(st.threshold, glyphThreshold, ctx.Color) + fmt.Sprintf(" ready threshold (%d%%)", int(math.Round(s.Threshold*100))),
	}
	if s.NowVisible() {
		parts = append(parts, st.render(st.now, glyphNow, ctx.Color)+" now")
	}
	return strings.Join(parts, "   ")
}

// valueAt linearly interpolates the remaining fraction at hour h.
func valueAt(s curve.Series, h float64) float64 {
	pts := s.Points
	if h <= pts[0].Hours {
		return pts[0].Remaining
	}
	last := pts[len(pts)-1]
	if h >= last.Hours {
		return last.Remaining
	}
	i := int(h / s.StepHours)
	if i >= len(pts)-1 {
		return last.Remaining
	}
	a, b := pts[i], pts[i+1]
	span := b.Hours - a.Hours
	if span <= 0 {
		return a.Remaining
	}
	return a.Remaining + (b.Remaining-a.Remaining)*(h-a.Hours)/span
}

func axisLabel(row, height int) string {
	switch row {
	case 0:
		return "100%"
	case (height - 1) / 2:
		return " 50%"
	case height - 1:
		return "  0%"
	default:
		return "    "
	}
}

func xAxisLabels(horizon float64, width int) string {
	left := "0h"
	mid := fmt.Sprintf("%gh", math.Round(horizon/2))
	right := fmt.Sprintf("%gh", math.Round(horizon))

	const offset = 5
	line := []byte(strings.Repeat(" ", offset+width))
	place := func(pos int, text string) {
		if pos+len(text) > len(line) {
			pos = len(line) - len(text)
		}
		if pos < 0 {
			pos = 0
		}
		copy(line[pos:], text)
	}
	place(offset, left)
	place(offset+width/2-len(mid)/2, mid)
	place(offset+width-len(right), right)
	return strings.TrimRight(string(line), " ")
}
