package diagram

import (
	"fmt"
	"strings"
)

// Style controls how many diagrams are drawn and how dense they are.
type Style string

const (
	// StyleMinimal draws only the architecture and data flow diagrams.
	StyleMinimal Style = "minimal"
	// StyleStandard adds the process flow, and the results overview when
	// the notebook has plots.
	StyleStandard Style = "standard"
	// StyleDetailed draws every diagram with a larger node budget.
	StyleDetailed Style = "detailed"
)

// ParseStyle accepts a style name; empty means standard.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StyleStandard, nil
	case StyleMinimal, StyleStandard, StyleDetailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown diagram style %q (minimal, standard, detailed)", s)
}
