package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_ColumnWidths(t *testing.T) {
	table := &Table{
		Headers: []string{"Stage", "Outcome", "Attempts"},
		Rows: [][]string{
			{"analysis", "succeeded", "1"},
			{"executive_summary", "degraded (last good)", "3"},
		},
	}

	assert.Equal(t, []int{17, 20, 8}, table.ColumnWidths())
}

func TestTable_ColumnWidths_MaxWidth(t *testing.T) {
	table := &Table{
		Headers:  []string{"Run", "Title"},
		Rows:     [][]string{{"3f2a9c1e", "Credit Default Risk Modelling With Gradient Boosting"}},
		MaxWidth: 20,
	}

	assert.Equal(t, []int{8, 20}, table.ColumnWidths())
}

func TestTable_Render(t *testing.T) {
	table := &Table{
		Headers: []string{"Stage", "Outcome"},
		Rows: [][]string{
			{"introduction", "succeeded"},
			{"diagrams", "degraded"},
		},
	}

	lines := strings.Split(strings.TrimRight(table.Render(), "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Stage")
	assert.Contains(t, lines[1], "─")
	assert.Equal(t, " introduction  succeeded", lines[2])
	assert.Equal(t, " diagrams      degraded ", lines[3])
}

func TestTable_Render_NoHeaders(t *testing.T) {
	assert.Empty(t, (&Table{Rows: [][]string{{"orphan"}}}).Render())
}

func TestTable_Render_Truncation(t *testing.T) {
	table := &Table{
		Headers:  []string{"Reason"},
		Rows:     [][]string{{"call exhausted after 3 attempts"}},
		MaxWidth: 10,
	}

	assert.Contains(t, table.Render(), " call exha…")
}

func TestTable_Render_ShortRows(t *testing.T) {
	table := &Table{
		Headers: []string{"Stage", "Outcome", "Policy"},
		Rows:    [][]string{{"references", "succeeded"}},
	}

	out := table.Render()
	assert.Contains(t, out, "references")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestFit(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"ieee", 6, "ieee  "},
		{"apa", 3, "apa"},
		{"methodology", 6, "metho…"},
		{"", 2, "  "},
		{"résumé", 7, "résumé "},
		{"ab", 1, "a"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, fit(tc.input, tc.width), "fit(%q, %d)", tc.input, tc.width)
	}
}
