package stages

import (
	"context"
	"errors"

	"github.com/josephgoksu/ReportWing/internal/citation"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
)

func init() {
	RegisterStageFactory(report.SectionReferences,
		"Builds the bibliography from imported libraries without calling the model",
		nil,
		func(deps Deps, _ []string) pipeline.Stage { return NewReferencesStage(deps) })
}

// ReferencesStage is deterministic: it makes no Gateway calls.
type ReferencesStage struct {
	deps Deps
	desc pipeline.Descriptor
}

// NewReferencesStage creates the references stage.
func NewReferencesStage(deps Deps) *ReferencesStage {
	return &ReferencesStage{
		deps: deps,
		desc: deps.apply(pipeline.Descriptor{
			Name:          report.SectionReferences,
			RequiredFacts: []string{report.FactLibraries},
			ProvidesFacts: []string{report.FactBibliography, report.FactCitationCount},
			Produces:      []string{report.SectionReferences},
			MaxAttempts:   1,
			Fallback:      pipeline.UsePlaceholder,
		}),
	}
}

func (s *ReferencesStage) Descriptor() pipeline.Descriptor { return s.desc }

func (s *ReferencesStage) Prepare(*report.View) ([]pipeline.Call, error) { return nil, nil }

func (s *ReferencesStage) Invoke(_ context.Context, _ *pipeline.Caller, view *report.View, _ []pipeline.Call) (pipeline.Result, error) {
	return s.build(view), nil
}

func (s *ReferencesStage) build(view *report.View) pipeline.Result {
	bib := citation.Build(view.Strings(report.FactLibraries), s.deps.CitationStyle, s.deps.Year)
	// IEEE entries carry their own [n] numbers.
	return pipeline.Result{
		Sections: []report.Section{section(report.SectionReferences, report.List(false, bib.Formatted()...))},
		Facts: []report.FactWrite{
			report.Set(report.FactBibliography, bib),
			report.Set(report.FactCitationCount, len(bib.Entries)),
		},
	}
}

func (s *ReferencesStage) Validate(res pipeline.Result) error {
	for _, sec := range res.Sections {
		for _, b := range sec.Body.Blocks {
			if b.Kind == report.BlockList && len(b.Items) > 0 {
				return nil
			}
		}
	}
	return errors.New("references: bibliography is empty")
}

func (s *ReferencesStage) Fallback(view *report.View, _ pipeline.Result) pipeline.Result {
	return s.build(view)
}
