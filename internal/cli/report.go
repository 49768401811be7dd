package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/okian/recovery/internal/domain/types"
	"github.com/okian/recovery/internal/render/terminal"
	"github.com/okian/recovery/internal/render/theme"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ReportOptions controls WriteReport.
type ReportOptions struct {
	Format string
	Theme  theme.Theme
	Color  bool
	// Now anchors the humanised ready time.
	Now time.Time
}

// WriteReport renders resp to w as text or JSON.
func WriteReport(w io.Writer, resp types.EstimateResponse, opts ReportOptions) error {
	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "", FormatText:
		_, err := io.WriteString(w, textReport(resp, opts))
		return err
	default:
		return fmt.Errorf("%w: unknown format %q", ErrUsage, opts.Format)
	}
}

func textReport(resp types.EstimateResponse, opts ReportOptions) string {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	label := func(s string) string { return s }
	status := label
	if opts.Color {
		lbl := lipgloss.NewStyle().Foreground(lipgloss.Color(opts.Theme.Muted)).Width(15)
		label = func(s string) string { return lbl.Render(s) }
		c := opts.Theme.Fatigued
		if resp.Summary.Ready {
			c = opts.Theme.Ready
		}
		st := lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Bold(true)
		status = func(s string) string { return st.Render(s) }
	} else {
		label = func(s string) string { return fmt.Sprintf("%-15s", s) }
	}

	s := resp.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", label("Recovery"), status(fmt.Sprintf("%d%%", s.RecoveryPct)))
	fmt.Fprintf(&b, "%s%d%% (ready at %d%%)\n", label("Remaining load"), s.RemainingLoadPct, s.ReadyThreshold)
	fmt.Fprintf(&b, "%s%s\n", label("Time to ready"), s.TimeToRecover)
	fmt.Fprintf(&b, "%s%s\n", label("Ready"), readyWhen(resp, opts.Now))
	fmt.Fprintf(&b, "%s%s\n", label("Half-life"), s.HalfLife)
	b.WriteString("\n")
	b.WriteString(s.Explanation)
	b.WriteString("\n")

	if resp.Curve != nil {
		ctx := terminal.NewContext(opts.Theme, opts.Color)
		b.WriteString("\n")
		b.WriteString(terminal.Render(ctx, *resp.Curve))
		b.WriteString(terminal.Legend(ctx, *resp.Curve))
		b.WriteString("\n")
	}
	return b.String()
}

// readyWhen phrases HoursUntilReady relative to now.
func readyWhen(resp types.EstimateResponse, now time.Time) string {
	if resp.Summary.Ready || resp.Result.HoursUntilReady <= 0 {
		return "now"
	}
	d := time.Duration(resp.Result.HoursUntilReady * float64(time.Hour))
	at := now.Add(d)
	return fmt.Sprintf("%s (%s)", humanize.RelTime(at, now, "ago", "from now"), at.Format("Mon 15:04"))
}
