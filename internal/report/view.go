package report

import (
	"fmt"
	"sort"
	"strconv"
)

// View is a read-only snapshot of the facts and prior sections a stage may
// see. Every accessor returns copies, so stages cannot reach back into the
// run's Context.
type View struct {
	summary  string
	facts    map[string]any
	sections map[string][]Section
}

// NewView builds a standalone view, mostly useful for exercising a stage
// outside a pipeline run.
func NewView(summary string, facts map[string]any, sections map[string][]Section) *View {
	v := &View{summary: summary, facts: make(map[string]any, len(facts)), sections: make(map[string][]Section, len(sections))}
	for k, f := range facts {
		v.facts[k] = cloneValue(f)
	}
	for k, s := range sections {
		v.sections[k] = CloneSections(s)
	}
	return v
}

// SourceSummary returns the condensed input description.
func (v *View) SourceSummary() string { return v.summary }

// Has reports whether the view exposes a fact.
func (v *View) Has(key string) bool {
	_, ok := v.facts[key]
	return ok
}

// Keys returns exposed fact keys in sorted order.
func (v *View) Keys() []string {
	keys := make([]string, 0, len(v.facts))
	for k := range v.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns a copy of a fact. Sequences are returned as []any.
func (v *View) Value(key string) (any, bool) {
	f, ok := v.facts[key]
	if !ok {
		return nil, false
	}
	return cloneValue(f), true
}

// String returns a string fact, or "" when absent.
func (v *View) String(key string) string {
	switch x := v.facts[key].(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Int returns an integer fact.
func (v *View) Int(key string) (int, bool) {
	switch x := v.facts[key].(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	default:
		return 0, false
	}
}

// Strings returns a sequence (or []string) fact as strings.
func (v *View) Strings(key string) []string {
	switch x := v.facts[key].(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(it))
			}
		}
		return out
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	default:
		return nil
	}
}

// Items returns a sequence fact's items.
func (v *View) Items(key string) []any {
	if x, ok := v.facts[key].([]any); ok {
		return cloneValue(x).([]any)
	}
	return nil
}

// Table returns a table fact.
func (v *View) Table(key string) (Table, bool) {
	t, ok := v.facts[key].(Table)
	if !ok {
		return Table{}, false
	}
	return t.Clone(), true
}

// Figures returns the figure sequence stored under key.
func (v *View) Figures(key string) []Figure {
	var out []Figure
	for _, it := range v.Items(key) {
		if f, ok := it.(Figure); ok {
			out = append(out, f)
		}
	}
	return out
}

// Counts returns a map[string]int fact.
func (v *View) Counts(key string) map[string]int {
	m, ok := v.facts[key].(map[string]int)
	if !ok {
		return nil
	}
	return cloneValue(m).(map[string]int)
}

// Scores returns model evaluation rows stored under key.
func (v *View) Scores(key string) []ModelScore {
	s, ok := v.facts[key].([]ModelScore)
	if !ok {
		return nil
	}
	return append([]ModelScore(nil), s...)
}

// Sections returns the sections a referenced stage produced.
func (v *View) Sections(stage string) []Section {
	return CloneSections(v.sections[stage])
}
