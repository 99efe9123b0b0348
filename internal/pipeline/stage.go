// Package pipeline sequences report generation stages over a shared,
// append-only context and assembles the finished document.
package pipeline

import (
	"context"
	"fmt"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/report"
)

// FallbackPolicy says what to do once a stage has exhausted its attempts.
type FallbackPolicy string

const (
	SkipSection    FallbackPolicy = "skip-section"
	UsePlaceholder FallbackPolicy = "use-placeholder-text"
	UseLastGood    FallbackPolicy = "use-last-good-context"
)

// Policies lists the defined fallback policies.
func Policies() []FallbackPolicy {
	return []FallbackPolicy{SkipSection, UsePlaceholder, UseLastGood}
}

// Valid reports whether p is a defined policy.
func (p FallbackPolicy) Valid() bool {
	switch p {
	case SkipSection, UsePlaceholder, UseLastGood:
		return true
	}
	return false
}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (FallbackPolicy, error) {
	p := FallbackPolicy(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown fallback policy %q", s)
	}
	return p, nil
}

// Descriptor is the static contract of a stage.
type Descriptor struct {
	Name string `json:"name" yaml:"name"`
	// RequiredFacts must be present before the stage runs.
	RequiredFacts []string `json:"required_facts" yaml:"required_facts"`
	// OptionalFacts are exposed when present and never checked.
	OptionalFacts []string `json:"optional_facts,omitempty" yaml:"optional_facts,omitempty"`
	// ProvidesFacts are the new keys the stage writes.
	ProvidesFacts []string `json:"provides_facts,omitempty" yaml:"provides_facts,omitempty"`
	// AppendsFacts are existing sequences the stage extends.
	AppendsFacts []string `json:"appends_facts,omitempty" yaml:"appends_facts,omitempty"`
	// Produces lists the template sections the stage fills.
	Produces []string `json:"produces" yaml:"produces"`
	// References lists earlier stages whose sections the stage may read.
	References  []string       `json:"references,omitempty" yaml:"references,omitempty"`
	MaxAttempts int            `json:"max_attempts" yaml:"max_attempts"`
	Fallback    FallbackPolicy `json:"fallback_policy" yaml:"fallback_policy"`
}

// viewFacts is every fact key the stage may read.
func (d Descriptor) viewFacts() []string {
	out := make([]string, 0, len(d.RequiredFacts)+len(d.OptionalFacts)+len(d.AppendsFacts))
	out = append(out, d.RequiredFacts...)
	out = append(out, d.OptionalFacts...)
	out = append(out, d.AppendsFacts...)
	return out
}

// writableFacts is every fact key the stage may write.
func (d Descriptor) writableFacts() []string {
	out := make([]string, 0, len(d.ProvidesFacts)+len(d.AppendsFacts))
	out = append(out, d.ProvidesFacts...)
	return append(out, d.AppendsFacts...)
}

// Call is one Gateway request a stage intends to make.
type Call struct {
	ID     string
	Prompt string
	Params llm.Params
	// Check structurally validates raw output; a non-nil error counts as a
	// failed attempt.
	Check func(raw string) error
}

// Result is what a stage hands back to the orchestrator.
type Result struct {
	Sections []report.Section
	Facts    []report.FactWrite
}

// Stage is the capability every generation stage implements.
type Stage interface {
	Descriptor() Descriptor
	// Prepare builds the calls the stage will make from its view.
	Prepare(view *report.View) ([]Call, error)
	// Invoke runs the calls through caller and assembles a result. On error
	// it returns whatever parts did succeed.
	Invoke(ctx context.Context, caller *Caller, view *report.View, calls []Call) (Result, error)
	// Validate checks the assembled result.
	Validate(res Result) error
	// Fallback builds degraded content from known facts, reusing any
	// successful parts of partial.
	Fallback(view *report.View, partial Result) Result
}
