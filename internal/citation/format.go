package citation

import (
	"fmt"
	"strings"
)

// Style is a reference list style.
type Style string

const (
	IEEE Style = "ieee"
	APA  Style = "apa"
)

// ParseStyle accepts "ieee" or "apa" in any case; empty means IEEE.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", IEEE:
		return IEEE, nil
	case APA:
		return APA, nil
	}
	return "", fmt.Errorf("unsupported citation style: %q (supported: ieee, apa)", s)
}

// Bibliography is the ordered reference list for one report.
type Bibliography struct {
	Style   Style   `json:"style" yaml:"style"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// CloneValue lets a bibliography live in the report context.
func (b Bibliography) CloneValue() any {
	return Bibliography{Style: b.Style, Entries: append([]Entry(nil), b.Entries...)}
}

// Build assembles the bibliography: one entry per library in name order,
// followed by the tool citations. The year is used for generic entries.
func Build(libraries []string, style Style, year string) Bibliography {
	b := Bibliography{Style: style}
	seen := make(map[string]bool)
	for _, lib := range Normalize(libraries) {
		e := Lookup(lib, year)
		seen[e.Key] = true
		b.Entries = append(b.Entries, e)
	}
	for _, t := range tools {
		if !seen[t.Key] {
			b.Entries = append(b.Entries, t)
		}
	}
	return b
}

// Formatted renders every entry in the bibliography's style.
func (b Bibliography) Formatted() []string {
	out := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		if b.Style == APA {
			out[i] = e.APA()
		} else {
			out[i] = fmt.Sprintf("[%d] %s", i+1, e.IEEE())
		}
	}
	return out
}

// BibTeX renders all entries as one BibTeX document.
func (b Bibliography) BibTeX() string {
	parts := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		parts[i] = e.BibTeX()
	}
	return strings.Join(parts, "\n\n")
}

// APA renders "Authors (Year). Title. Venue, Volume, Pages. Retrieved from URL".
func (e Entry) APA() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s). %s.", e.Authors, e.Year, e.Title)
	if e.Venue != "" {
		sb.WriteString(" " + e.Venue)
		if e.Volume != "" {
			sb.WriteString(", " + e.Volume)
		}
		if e.Pages != "" {
			sb.WriteString(", " + e.Pages)
		}
		sb.WriteString(".")
	}
	if e.URL != "" {
		sb.WriteString(" Retrieved from " + e.URL)
	}
	return sb.String()
}

// IEEE renders `Authors, "Title," Venue, vol. V, pp. P, Year.`
func (e Entry) IEEE() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s, \"%s,\"", e.Authors, e.Title)
	if e.Venue != "" {
		sb.WriteString(" " + e.Venue + ",")
	}
	if e.Volume != "" {
		sb.WriteString(" vol. " + e.Volume + ",")
	}
	if e.Pages != "" {
		sb.WriteString(" pp. " + e.Pages + ",")
	}
	sb.WriteString(" " + e.Year + ".")
	if e.URL != "" {
		sb.WriteString(" [Online]. Available: " + e.URL)
	}
	return sb.String()
}

// BibTeX renders the entry as a BibTeX record.
func (e Entry) BibTeX() string {
	kind := e.Kind
	if kind == "" {
		kind = "misc"
	}
	fields := [][2]string{{"title", e.Title}, {"author", e.Authors}, {"year", e.Year}}
	venueField := "journal"
	switch kind {
	case "inproceedings":
		venueField = "booktitle"
	case "book", "misc":
		venueField = "publisher"
	}
	for _, f := range [][2]string{{venueField, e.Venue}, {"volume", e.Volume}, {"pages", e.Pages}, {"url", e.URL}} {
		if f[1] != "" {
			fields = append(fields, f)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "@%s{%s", kind, bibKey(e.Key))
	for _, f := range fields {
		fmt.Fprintf(&sb, ",\n  %s={%s}", f[0], f[1])
	}
	sb.WriteString("\n}")
	return sb.String()
}

func bibKey(k string) string {
	return strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(k))
}
