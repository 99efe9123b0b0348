package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows with fixed-width columns for terminal display.
type Table struct {
	Headers  []string
	Rows     [][]string
	MaxWidth int // Max width per column (0 = auto)
}

// ColumnWidths calculates column widths from the visible width of each cell.
func (t *Table) ColumnWidths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	if t.MaxWidth > 0 {
		for i := range widths {
			widths[i] = min(widths[i], t.MaxWidth)
		}
	}
	return widths
}

// Render outputs the table to a string.
func (t *Table) Render() string {
	if len(t.Headers) == 0 {
		return ""
	}
	widths := t.ColumnWidths()

	var sb strings.Builder
	cells := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		cells[i] = styleColumnHeader.Render(fit(h, widths[i]))
	}
	sb.WriteString(" " + strings.Join(cells, "  ") + "\n")

	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w)
	}
	sb.WriteString(" " + StyleSubtle.Render(strings.Join(seps, "──")) + "\n")

	for _, row := range t.Rows {
		for i := range t.Headers {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			cells[i] = fit(val, widths[i])
		}
		sb.WriteString(" " + strings.Join(cells, "  ") + "\n")
	}
	return sb.String()
}

// fit truncates or pads s to exactly width visible cells. Styled cells are
// padded but never cut, so escape sequences stay intact.
func fit(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width && w == len([]rune(s)) {
		r := []rune(s)
		if width <= 1 {
			return string(r[:max(width, 0)])
		}
		return string(r[:width-1]) + "…"
	}
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
