package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type selects the report template.
type Type string

const (
	Academic   Type = "academic"
	Internship Type = "internship"
	Industry   Type = "industry"
	Research   Type = "research"
)

// Well-known section names.
const (
	SectionAbstract         = "abstract"
	SectionExecutiveSummary = "executive_summary"
	SectionIntroduction     = "introduction"
	SectionRelatedWork      = "related_work"
	SectionMethodology      = "methodology"
	SectionImplementation   = "implementation"
	SectionDiagrams         = "diagrams"
	SectionResults          = "results"
	SectionDiscussion       = "discussion"
	SectionRecommendations  = "recommendations"
	SectionLearningOutcomes = "learning_outcomes"
	SectionConclusion       = "conclusion"
	SectionFutureWork       = "future_work"
	SectionReferences       = "references"
)

// SectionSpec is a template slot.
type SectionSpec struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`
}

// Template is the fixed, ordered list of sections for a report type.
type Template struct {
	Type     Type          `json:"type" yaml:"type"`
	Sections []SectionSpec `json:"sections" yaml:"sections"`
}

var sectionTitles = map[string]string{
	SectionAbstract:         "Abstract",
	SectionExecutiveSummary: "Executive Summary",
	SectionIntroduction:     "Introduction",
	SectionRelatedWork:      "Related Work",
	SectionMethodology:      "Methodology",
	SectionImplementation:   "Implementation",
	SectionDiagrams:         "System Diagrams",
	SectionResults:          "Results",
	SectionDiscussion:       "Discussion",
	SectionRecommendations:  "Recommendations",
	SectionLearningOutcomes: "Learning Outcomes",
	SectionConclusion:       "Conclusion",
	SectionFutureWork:       "Future Work",
	SectionReferences:       "References",
}

var templates = map[Type][]string{
	Academic: {
		SectionAbstract, SectionIntroduction, SectionMethodology, SectionDiagrams,
		SectionResults, SectionDiscussion, SectionConclusion, SectionReferences,
	},
	Internship: {
		SectionExecutiveSummary, SectionIntroduction, SectionImplementation, SectionDiagrams,
		SectionResults, SectionLearningOutcomes, SectionConclusion, SectionReferences,
	},
	Industry: {
		SectionExecutiveSummary, SectionIntroduction, SectionMethodology, SectionDiagrams,
		SectionResults, SectionRecommendations, SectionConclusion, SectionReferences,
	},
	Research: {
		SectionAbstract, SectionIntroduction, SectionRelatedWork, SectionMethodology, SectionDiagrams,
		SectionResults, SectionDiscussion, SectionConclusion, SectionFutureWork, SectionReferences,
	},
}

// Types lists supported report types in a stable order.
func Types() []Type {
	return []Type{Academic, Internship, Industry, Research}
}

// ParseType validates a report type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[t]; !ok {
		return "", fmt.Errorf("unsupported report type: %q (supported: academic, internship, industry, research)", s)
	}
	return t, nil
}

// TemplateFor returns the template for a report type.
func TemplateFor(t Type) (Template, error) {
	names, ok := templates[t]
	if !ok {
		return Template{}, fmt.Errorf("unsupported report type: %q", t)
	}
	tmpl := Template{Type: t, Sections: make([]SectionSpec, len(names))}
	for i, n := range names {
		tmpl.Sections[i] = SectionSpec{Name: n, Title: SectionTitle(n)}
	}
	return tmpl, nil
}

// SectionTitle returns the display title for a section name.
func SectionTitle(name string) string {
	if t, ok := sectionTitles[name]; ok {
		return t
	}
	return cases.Title(language.English).String(strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " "))
}

// Has reports whether the template contains the section.
func (t Template) Has(name string) bool {
	return t.Index(name) >= 0
}

// Index returns the slot position of a section, or -1.
func (t Template) Index(name string) int {
	for i, s := range t.Sections {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the ordered section names.
func (t Template) Names() []string {
	out := make([]string, len(t.Sections))
	for i, s := range t.Sections {
		out[i] = s.Name
	}
	return out
}
