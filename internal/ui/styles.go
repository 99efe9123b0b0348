package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
)

var (
	ColorAccent  = lipgloss.Color("205") // Pink
	ColorMuted   = lipgloss.Color("241") // Gray
	ColorSuccess = lipgloss.Color("42")  // Green
	ColorError   = lipgloss.Color("160") // Red
	ColorWarning = lipgloss.Color("214") // Orange, fallback content
	ColorCached  = lipgloss.Color("87")  // Cyan, last-good content

	StyleSubtle  = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleCached  = lipgloss.NewStyle().Foreground(ColorCached)

	// StyleHeader frames the report title above a run summary.
	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted)

	styleColumnHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Icon returns a styled icon string
func Icon(icon string, style lipgloss.Style) string {
	return style.Render(icon)
}

// OutcomeStyle picks the color for a finished stage.
func OutcomeStyle(st pipeline.StageTrace) lipgloss.Style {
	switch {
	case st.LastGood:
		return StyleCached
	case st.Outcome == pipeline.OutcomeSucceeded:
		return StyleSuccess
	case st.Outcome == pipeline.OutcomeDegraded:
		return StyleWarning
	default:
		return StyleError
	}
}
