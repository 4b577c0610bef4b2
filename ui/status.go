package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/nashdub/dubsync/dub"
	"github.com/nashdub/dubsync/dub/quality"
)

// Status colors.
var (
	green  = lipgloss.Color("#00FF00")
	yellow = lipgloss.Color("#FFFF00")
	orange = lipgloss.Color("#FF8800")
	red    = lipgloss.Color("#FF0000")
	blue   = lipgloss.Color("#00AAFF")
	gray   = lipgloss.Color("#888888")
)

// StatusIcon returns the icon and color of a quality status.
func StatusIcon(s quality.Status) (string, lipgloss.Color) {
	switch s {
	case quality.Perfect:
		return "●", green
	case quality.Excellent:
		return "◉", green
	case quality.Good:
		return "◎", blue
	case quality.Acceptable:
		return "○", yellow
	case quality.NeedsAdjustment:
		return "△", orange
	default:
		return "✗", red
	}
}

// RenderStatus renders a status with its icon.
func RenderStatus(s quality.Status) string {
	icon, color := StatusIcon(s)
	return lipgloss.NewStyle().Foreground(color).Render(icon + " " + s.String())
}

// StateIcon returns the icon of a line state during a sync pass.
func StateIcon(s dub.LineState) string {
	switch s {
	case dub.StateMeasuring:
		return "⟳"
	case dub.StateMeasured:
		return "■"
	case dub.StateMeasureFailed:
		return "✗"
	case dub.StateClassified:
		return "◆"
	case dub.StateApplied:
		return "✓"
	default:
		return "·"
	}
}

// SyncStatus summarizes a running sync pass for display.
type SyncStatus struct {
	Done    int
	Total   int
	Line    string
	State   dub.LineState
	Failed  int
	Message string
}

// Progress returns the completed fraction.
func (s SyncStatus) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total)
}

// CompactStatus returns a one line status for the bottom of the view.
func (s SyncStatus) CompactStatus(width int) string {
	if s.Total == 0 {
		return ""
	}

	color := blue
	if s.State == dub.StateMeasureFailed {
		color = red
	}
	status := lipgloss.NewStyle().Foreground(color).Render(StateIcon(s.State) + " sync")
	counter := lipgloss.NewStyle().Foreground(gray).Render(fmt.Sprintf(" %d/%d", s.Done, s.Total))
	out := status + counter

	if s.Failed > 0 {
		out += lipgloss.NewStyle().Foreground(red).Render(fmt.Sprintf(" %d failed", s.Failed))
	}
	if s.Line != "" && width > 0 {
		room := width - lipgloss.Width(out) - 1
		if room > 3 {
			out += " " + truncate.StringWithTail(s.Line, uint(room), "…")
		}
	}
	return out
}

// ProgressBar renders a text progress bar of width cells.
func ProgressBar(fraction float64, width int) string {
	if width < 3 {
		return ""
	}
	fraction = max(0, min(1, fraction))
	inner := width - 2
	filled := int(fraction * float64(inner))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", inner-filled) + "]"
}
