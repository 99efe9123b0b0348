package stages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/citation"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/prompts"
)

// part is one generation call of a narrative section. Sections with several
// parts render each under its own sub-heading.
type part struct {
	heading   string
	key       prompts.PromptKey
	words     string
	maxTokens int
	fallback  func(view *report.View) string
}

// narrativeSpec configures a NarrativeStage.
type narrativeSpec struct {
	name        string
	description string
	parts       []part
	// minWords and maxParagraphs bound each part's output.
	minWords      int
	maxParagraphs int
	wants         []string
	required      []string
	provides      []string
	policy        pipeline.FallbackPolicy
	extras        func(view *report.View) []report.Block
	facts         func(view *report.View) []report.FactWrite
	// check adds a content rule on top of the prose bounds.
	check func(view *report.View) func(raw string) error
}

// NarrativeStage writes one prose section from facts and referenced
// sections.
type NarrativeStage struct {
	spec narrativeSpec
	deps Deps
	desc pipeline.Descriptor
}

func newNarrativeStage(spec narrativeSpec, deps Deps, refs []string) *NarrativeStage {
	if spec.policy == "" {
		spec.policy = pipeline.UsePlaceholder
	}
	return &NarrativeStage{
		spec: spec,
		deps: deps,
		desc: deps.apply(pipeline.Descriptor{
			Name:          spec.name,
			RequiredFacts: append(append([]string(nil), narrativeRequired...), spec.required...),
			OptionalFacts: narrativeOptional,
			ProvidesFacts: spec.provides,
			Produces:      []string{spec.name},
			References:    refs,
			MaxAttempts:   defaultAttempts,
			Fallback:      spec.policy,
		}),
	}
}

func (s *NarrativeStage) Descriptor() pipeline.Descriptor { return s.desc }

func (s *NarrativeStage) Prepare(view *report.View) ([]pipeline.Call, error) {
	base := withPrior(promptData(s.deps.ReportType, view), view, s.desc.References)
	if s.spec.name == report.SectionRelatedWork {
		base.References = knownReferences(view.Strings(report.FactLibraries), s.deps.Year)
	}
	check := proseCheck(s.spec.minWords, s.spec.maxParagraphs)
	if s.spec.check != nil {
		check = allOf(check, s.spec.check(view))
	}
	calls := make([]pipeline.Call, 0, len(s.spec.parts))
	for _, p := range s.spec.parts {
		data := base
		data.Words = p.words
		prompt, err := s.deps.Prompts.Render(p.key, data)
		if err != nil {
			return nil, err
		}
		calls = append(calls, pipeline.Call{
			ID:     string(p.key),
			Prompt: prompt,
			Params: llm.Params{Temperature: 0.4, MaxTokens: p.maxTokens},
			Check:  check,
		})
	}
	return calls, nil
}

func (s *NarrativeStage) Invoke(ctx context.Context, caller *pipeline.Caller, view *report.View, calls []pipeline.Call) (pipeline.Result, error) {
	responses := caller.CallAll(ctx, calls)

	var (
		blocks []report.Block
		errs   []error
	)
	for i, r := range responses {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.CallID, r.Err))
			continue
		}
		if s.multipart() {
			blocks = append(blocks, report.Heading(3, s.spec.parts[i].heading))
		}
		blocks = append(blocks, prose(r.Text)...)
	}
	if len(errs) > 0 {
		return pipeline.Result{Sections: []report.Section{section(s.spec.name, blocks...)}}, errors.Join(errs...)
	}
	return s.assemble(view, blocks), nil
}

func (s *NarrativeStage) Validate(res pipeline.Result) error {
	if len(res.Sections) != 1 || res.Sections[0].Body.IsEmpty() {
		return fmt.Errorf("%s: expected one non-empty section", s.spec.name)
	}
	return nil
}

// Fallback keeps every part that did succeed and writes the rest from facts.
func (s *NarrativeStage) Fallback(view *report.View, partial pipeline.Result) pipeline.Result {
	var done []report.Block
	if len(partial.Sections) > 0 {
		done = partial.Sections[0].Body.Blocks
	}

	var blocks []report.Block
	if s.multipart() {
		groups := headed(done)
		for _, p := range s.spec.parts {
			if g, ok := groups[p.heading]; ok {
				blocks = append(blocks, g...)
				continue
			}
			blocks = append(blocks, report.Heading(3, p.heading), report.Paragraph(p.fallback(view)))
		}
	} else {
		blocks = append(blocks, report.Paragraph(s.spec.parts[0].fallback(view)))
	}
	res := s.assemble(view, blocks)
	res.Sections[0].Degraded = true
	return res
}

func (s *NarrativeStage) multipart() bool { return len(s.spec.parts) > 1 }

func (s *NarrativeStage) assemble(view *report.View, blocks []report.Block) pipeline.Result {
	if s.spec.extras != nil {
		blocks = append(blocks, s.spec.extras(view)...)
	}
	res := pipeline.Result{Sections: []report.Section{section(s.spec.name, blocks...)}}
	if s.spec.facts != nil {
		res.Facts = s.spec.facts(view)
	}
	return res
}

// knownReferences lists curated works for the libraries a notebook uses.
func knownReferences(libraries []string, year string) []string {
	var out []string
	for _, lib := range libraries {
		if e := citation.Lookup(lib, year); !e.Generic {
			out = append(out, fmt.Sprintf("%s (%s, %s)", e.Title, e.Authors, e.Year))
		}
	}
	return out
}

func objectivesList(view *report.View) []report.Block {
	objs := view.Strings(report.FactObjectives)
	if len(objs) == 0 {
		return nil
	}
	return []report.Block{report.Heading(3, "Project Objectives"), report.List(false, firstN(objs, 5)...)}
}

func lineupList(view *report.View) []report.Block {
	models := view.Strings(report.FactModelLineup)
	if len(models) == 0 {
		return nil
	}
	return []report.Block{report.Heading(3, "Model Line-up"), report.List(false, models...)}
}

func functionsList(view *report.View) []report.Block {
	fns := view.Strings(report.FactFunctions)
	if len(fns) == 0 {
		return nil
	}
	items := make([]string, 0, 10)
	for _, f := range firstN(fns, 10) {
		items = append(items, "`"+f+"`")
	}
	return []report.Block{report.Heading(3, "Functions Implemented"), report.List(false, items...)}
}

// withListings appends the seeded code listings, when any, after extra.
func withListings(extra func(*report.View) []report.Block) func(*report.View) []report.Block {
	return func(view *report.View) []report.Block {
		blocks := extra(view)
		snippets := view.Strings(report.FactCodeSnippets)
		if len(snippets) == 0 {
			return blocks
		}
		blocks = append(blocks, report.Heading(3, "Code Listings"))
		for _, src := range snippets {
			blocks = append(blocks, report.Code("python", src))
		}
		return blocks
	}
}

func toolsList(view *report.View) []report.Block {
	libs := view.Strings(report.FactLibraries)
	if len(libs) == 0 {
		return nil
	}
	return []report.Block{report.Heading(3, "Tools Practised"), report.List(false, libs...)}
}

func metricsBlocks(view *report.View) []report.Block {
	t, ok := view.Table(report.FactMetricsTable)
	if !ok || len(t.Rows) == 0 {
		return nil
	}
	return []report.Block{report.Heading(3, "Performance Metrics"), report.TableBlock(t)}
}

func bestModelFact(view *report.View) []report.FactWrite {
	best, ok := bestModel(view.Scores(report.FactModelMetrics))
	if !ok {
		return nil
	}
	return []report.FactWrite{report.Set(report.FactBestModel, describeScore(best))}
}

// quotesMetric requires the prose to state at least one captured metric
// value, as written in the table ("0.81") or as a percentage ("81%").
// Without captured metrics any prose passes. The table itself is appended
// from facts, never taken from the model.
func quotesMetric(view *report.View) func(raw string) error {
	t, ok := view.Table(report.FactMetricsTable)
	if !ok || len(t.Rows) == 0 {
		return nil
	}
	var values []string
	for _, row := range t.Rows {
		for _, cell := range row[min(1, len(row)):] {
			f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				continue
			}
			values = append(values, strings.TrimSpace(cell))
			if f > 0 && f <= 1 {
				values = append(values, fmt.Sprintf("%.0f%%", f*100), fmt.Sprintf("%.1f%%", f*100))
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	return func(raw string) error {
		for _, v := range values {
			if strings.Contains(raw, v) {
				return nil
			}
		}
		return errors.New("results prose quotes none of the captured metric values")
	}
}

// Fact-based fallback prose.

func summaryFallback(view *report.View) string {
	return fmt.Sprintf("This report presents %s. The work analyses %s using %s, evaluating %s. The strongest result was %s.",
		title(view), datasetPhrase(view),
		joinOr(firstN(view.Strings(report.FactLibraries), 4), ", ", "standard Python tooling"),
		joinOr(view.Strings(report.FactModelLineup), ", ", "several modelling approaches"),
		bestModelPhrase(view))
}

func introductionFallback(view *report.View) string {
	return fmt.Sprintf("This report documents %s. It covers %s sourced from %s and summarises how the analysis was carried out and what it found.",
		title(view), datasetPhrase(view),
		joinOr(view.Strings(report.FactDataSources), ", ", "the project files"))
}

func genericFallback(name string) func(view *report.View) string {
	return func(view *report.View) string {
		return fmt.Sprintf("%s for %s was not generated automatically. Key findings: %s.",
			report.SectionTitle(name), title(view),
			joinOr(view.Strings(report.FactKeyFindings), "; ", "see the results section"))
	}
}

func dataPrepFallback(view *report.View) string {
	return fmt.Sprintf("Data (%s) was loaded from %s and prepared with %s.",
		datasetPhrase(view),
		joinOr(view.Strings(report.FactDataSources), ", ", "the project files"),
		joinOr(firstN(view.Strings(report.FactLibraries), 4), ", ", "standard tooling"))
}

func modelingFallback(view *report.View) string {
	return fmt.Sprintf("The following model families were evaluated: %s.",
		joinOr(view.Strings(report.FactModelLineup), ", ", "the models defined in the notebook"))
}

func validationFallback(view *report.View) string {
	if len(view.Scores(report.FactModelMetrics)) > 0 {
		return "Models were compared on held-out data using accuracy, ROC-AUC, recall and precision."
	}
	return "Models were compared on the evaluation output printed in the notebook."
}

func resultsFallback(view *report.View) string {
	if best, ok := bestModel(view.Scores(report.FactModelMetrics)); ok {
		return fmt.Sprintf("The strongest configuration was %s. The full comparison is listed below.", describeScore(best))
	}
	text := "No structured metrics were captured from the notebook output."
	if findings := view.Strings(report.FactKeyFindings); len(findings) > 0 {
		text += " Key findings: " + strings.Join(findings, "; ") + "."
	}
	return text
}

func single(key prompts.PromptKey, words string, maxTokens int, fallback func(*report.View) string) []part {
	return []part{{key: key, words: words, maxTokens: maxTokens, fallback: fallback}}
}

var narrativeSpecs = []narrativeSpec{
	{
		name:          report.SectionAbstract,
		description:   "Academic abstract written after the results and conclusion",
		parts:         single(prompts.KeyAbstract, "about 120 words", 220, summaryFallback),
		minWords:      25,
		maxParagraphs: 6,
		wants:         []string{report.SectionResults, report.SectionConclusion},
		policy:        pipeline.UseLastGood,
	},
	{
		name:          report.SectionExecutiveSummary,
		description:   "Decision-maker summary written after the results and conclusion",
		parts:         single(prompts.KeyExecutiveSummary, "150-180 words", 300, summaryFallback),
		minWords:      25,
		maxParagraphs: 6,
		wants:         []string{report.SectionResults, report.SectionConclusion},
		policy:        pipeline.UseLastGood,
	},
	{
		name:        report.SectionIntroduction,
		description: "Context, scope and objectives",
		parts:       single(prompts.KeyIntroduction, "about 180 words", 320, introductionFallback),
		minWords:    40,
		extras:      objectivesList,
	},
	{
		name:        report.SectionRelatedWork,
		description: "Positions the project against common approaches",
		parts:       single(prompts.KeyRelatedWork, "150-200 words", 300, genericFallback(report.SectionRelatedWork)),
		minWords:    40,
	},
	{
		name:        report.SectionMethodology,
		description: "Data preparation, modelling strategy and validation, generated in parallel",
		parts: []part{
			{heading: "Data Preparation", key: prompts.KeyMethodologyDataPrep, words: "about 80 words", maxTokens: 200, fallback: dataPrepFallback},
			{heading: "Modeling Strategy", key: prompts.KeyMethodologyModeling, words: "about 80 words", maxTokens: 200, fallback: modelingFallback},
			{heading: "Validation", key: prompts.KeyMethodologyValidation, words: "about 80 words", maxTokens: 200, fallback: validationFallback},
		},
		minWords: 40,
		extras:   withListings(lineupList),
	},
	{
		name:        report.SectionImplementation,
		description: "What was built and how the work was structured",
		parts:       single(prompts.KeyImplementation, "150-200 words", 300, genericFallback(report.SectionImplementation)),
		minWords:    40,
		extras:      withListings(functionsList),
	},
	{
		name:        report.SectionResults,
		description: "Quantitative findings with the model metrics table",
		parts:       single(prompts.KeyResults, "100-130 words", 260, resultsFallback),
		minWords:    40,
		required:    []string{report.FactMetricsTable},
		provides:    []string{report.FactBestModel},
		extras:      metricsBlocks,
		facts:       bestModelFact,
		check:       quotesMetric,
	},
	{
		name:        report.SectionDiscussion,
		description: "Interpretation, limitations and improvements",
		parts:       single(prompts.KeyDiscussion, "160-190 words", 320, genericFallback(report.SectionDiscussion)),
		minWords:    40,
		wants:       []string{report.SectionResults},
	},
	{
		name:        report.SectionRecommendations,
		description: "Stakeholder recommendations",
		parts:       single(prompts.KeyRecommendations, "150-180 words", 300, genericFallback(report.SectionRecommendations)),
		minWords:    40,
		wants:       []string{report.SectionResults},
	},
	{
		name:        report.SectionLearningOutcomes,
		description: "What the author learned",
		parts:       single(prompts.KeyLearningOutcomes, "150-180 words", 300, genericFallback(report.SectionLearningOutcomes)),
		minWords:    40,
		extras:      toolsList,
	},
	{
		name:        report.SectionConclusion,
		description: "Closing summary against the objectives",
		parts:       single(prompts.KeyConclusion, "90-110 words", 200, genericFallback(report.SectionConclusion)),
		minWords:    40,
		wants:       []string{report.SectionResults, report.SectionDiscussion},
	},
	{
		name:        report.SectionFutureWork,
		description: "Research directions",
		parts:       single(prompts.KeyFutureWork, "150-180 words", 300, genericFallback(report.SectionFutureWork)),
		minWords:    40,
		wants:       []string{report.SectionDiscussion},
	},
}

func init() {
	for _, spec := range narrativeSpecs {
		RegisterStageFactory(spec.name, spec.description, spec.wants, func(deps Deps, refs []string) pipeline.Stage {
			return newNarrativeStage(spec, deps, refs)
		})
	}
}
