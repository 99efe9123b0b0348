package stages

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/notebook"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const fixture = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {"authors": [{"name": "Ada Lovelace"}]},
 "cells": [
  {"cell_type": "markdown", "source": "# Credit Default Prediction\nPredict which clients default next month."},
  {"cell_type": "markdown", "source": "## Objectives\nCompare linear models on imbalanced data."},
  {"cell_type": "code", "execution_count": 1, "source": "import pandas as pd\nfrom sklearn.linear_model import LogisticRegression\ndf = pd.read_csv('credit_default.csv')\nlr = LogisticRegression()",
   "outputs": [
    {"output_type": "stream", "name": "stdout", "text": "RangeIndex: 30000 entries, 0 to 29999\nLogistic Regression\nAccuracy: 0.81\nROC AUC: 0.72\n"},
    {"output_type": "display_data", "data": {"image/png": "iVBORw0KGgo="}}
   ]}
 ]
}`

const (
	analysisJSON = `{"title": "Credit Default Risk Modelling", "objectives": ["Predict default", "Compare linear models"], "data_sources": ["Kaggle credit dataset"], "key_findings": ["Logistic regression generalises best"], "models": ["Logistic Regression"]}`
	mermaidText  = "```mermaid\ngraph TD\n    A[Load Data] --> B[Train Model]\n    B --> C[Report]\n```"
	proseText    = "The analysis loads the credit default data, cleans missing values and encodes categorical fields before any model is trained on it.\n\n" +
		"Logistic regression reached 0.81 accuracy with a ROC-AUC of 0.72 on a held-out split, and the results are discussed against the project objectives in detail."
)

// fakeGateway answers by prompt kind and records every prompt it sees.
type fakeGateway struct {
	mu      sync.Mutex
	prompts []string
	fail    func(prompt string) bool
}

func (g *fakeGateway) Generate(ctx context.Context, prompt string, _ llm.Params) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.fail != nil && g.fail(prompt) {
		return "", llm.NewFailure(llm.FailureUnavailable, errors.New("scripted outage"))
	}
	switch {
	case strings.Contains(prompt, "Respond with ONLY a JSON object"):
		return analysisJSON, nil
	case strings.Contains(prompt, "Generate ONLY valid Mermaid"):
		return mermaidText, nil
	default:
		return proseText, nil
	}
}

func (g *fakeGateway) find(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.prompts {
		if strings.HasPrefix(p, prefix) {
			return p
		}
	}
	return ""
}

// fakeRenderer pretends every diagram renders to a PNG.
type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, name string, _ diagram.Graph) (diagram.Artifact, error) {
	return diagram.Artifact{Path: "diagrams/" + name + ".png", Format: "png", Bytes: 10}, nil
}

func seeded(t *testing.T) *report.Context {
	t.Helper()
	nb, err := notebook.Parse(strings.NewReader(fixture))
	require.NoError(t, err)
	rc, err := notebook.Seed(nb, notebook.SeedOptions{})
	require.NoError(t, err)
	return rc
}

func newPipeline(t *testing.T, typ report.Type, gw llm.Gateway, deps Deps) *pipeline.Pipeline {
	t.Helper()
	tmpl, err := report.TemplateFor(typ)
	require.NoError(t, err)
	stages, err := Build(tmpl, deps)
	require.NoError(t, err)
	p, err := pipeline.New(pipeline.Config{Template: tmpl, SeedKeys: report.SeedKeys(), Gateway: gw}, stages...)
	require.NoError(t, err)
	return p
}

func TestOrder(t *testing.T) {
	tmpl, err := report.TemplateFor(report.Academic)
	require.NoError(t, err)
	assert.Equal(t, []string{
		NameAnalysis, report.SectionDiagrams, report.SectionIntroduction, report.SectionMethodology,
		report.SectionResults, report.SectionDiscussion, report.SectionConclusion,
		report.SectionAbstract, report.SectionReferences,
	}, Order(tmpl))
}

func TestBuild_EveryTemplateValidates(t *testing.T) {
	for _, typ := range report.Types() {
		t.Run(string(typ), func(t *testing.T) {
			p := newPipeline(t, typ, llm.Offline{}, Deps{})
			for _, d := range p.Descriptors() {
				for _, ref := range d.References {
					assert.NotEqual(t, d.Name, ref)
				}
			}
		})
	}
}

func TestBuild_AppliesOverrides(t *testing.T) {
	tmpl, err := report.TemplateFor(report.Industry)
	require.NoError(t, err)
	stages, err := Build(tmpl, Deps{Overrides: map[string]Override{
		report.SectionConclusion: {MaxAttempts: 5, Fallback: pipeline.SkipSection},
	}})
	require.NoError(t, err)
	for _, s := range stages {
		if d := s.Descriptor(); d.Name == report.SectionConclusion {
			assert.Equal(t, 5, d.MaxAttempts)
			assert.Equal(t, pipeline.SkipSection, d.Fallback)
			assert.Equal(t, []string{report.SectionResults}, d.References)
		}
	}
}

func TestRegistry(t *testing.T) {
	names := make([]string, 0)
	for _, info := range Registry() {
		assert.NotEmpty(t, info.Description, info.Name)
		names = append(names, info.Name)
	}
	assert.Contains(t, names, NameAnalysis)
	assert.Contains(t, names, report.SectionReferences)
	assert.IsIncreasing(t, names)
}

func TestRun_FullAcademicReport(t *testing.T) {
	gw := &fakeGateway{}
	p := newPipeline(t, report.Academic, gw, Deps{Renderer: fakeRenderer{}, Year: "2025"})
	rc := seeded(t)

	doc, trace, err := p.Run(context.Background(), rc)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "Credit Default Risk Modelling", doc.Title)
	tmpl, _ := report.TemplateFor(report.Academic)
	assert.Equal(t, tmpl.Names(), doc.Names())
	assert.Empty(t, doc.DegradedSections())
	for _, st := range trace.Stages {
		assert.Equal(t, pipeline.OutcomeSucceeded, st.Outcome, st.Stage)
	}

	methodology, _ := doc.Section(report.SectionMethodology)
	var headings []string
	for _, b := range methodology.Body.Blocks {
		if b.Kind == report.BlockHeading {
			headings = append(headings, b.Text)
		}
	}
	assert.Equal(t, []string{"Data Preparation", "Modeling Strategy", "Validation", "Model Line-up"}, headings)

	results, _ := doc.Section(report.SectionResults)
	assert.Contains(t, results.Body.PlainText(), "Logistic Regression | 0.81 | 0.72")

	diagrams, _ := doc.Section(report.SectionDiagrams)
	var refs []string
	for _, b := range diagrams.Body.Blocks {
		if b.Kind == report.BlockDiagram {
			refs = append(refs, b.Diagram.Artifact)
		}
	}
	// One plot in the notebook, so the results overview is drawn too.
	assert.Equal(t, []string{
		"diagrams/architecture.png", "diagrams/data_flow.png",
		"diagrams/process_flow.png", "diagrams/results_overview.png",
	}, refs)

	refsSection, _ := doc.Section(report.SectionReferences)
	assert.Contains(t, refsSection.Body.PlainText(), "[1]")

	abstract := gw.find("Draft an academic abstract")
	assert.Contains(t, abstract, "[results]")
	assert.Contains(t, abstract, "[conclusion]")
	assert.Contains(t, abstract, "Logistic Regression, accuracy 0.81, ROC-AUC 0.72")

	v := rc.View(report.ViewSpec{Facts: []string{report.FactFigures, report.FactBestModel, report.FactCitationCount, report.FactDataSources}})
	assert.Len(t, v.Figures(report.FactFigures), 5)
	assert.Equal(t, "Logistic Regression, accuracy 0.81, ROC-AUC 0.72", v.String(report.FactBestModel))
	assert.Equal(t, []string{"CSV/Excel files", "Dataset: credit_default.csv", "Kaggle credit dataset"}, v.Strings(report.FactDataSources))
	count, _ := v.Int(report.FactCitationCount)
	assert.Greater(t, count, 2)
	assert.Equal(t, []string{NameAnalysis}, rc.Provenance(report.FactProjectTitle))
}

func TestRun_OfflineStillProducesEverySection(t *testing.T) {
	p := newPipeline(t, report.Research, llm.Offline{}, Deps{})
	doc, trace, err := p.Run(context.Background(), seeded(t))
	require.NoError(t, err)

	tmpl, _ := report.TemplateFor(report.Research)
	assert.Equal(t, tmpl.Names(), doc.Names())
	assert.Equal(t, "Credit Default Prediction", doc.Title)

	st, _ := trace.Stage(NameAnalysis)
	assert.Equal(t, pipeline.OutcomeSkipped, st.Outcome)
	assert.Equal(t, 3, st.Attempts)

	refs, _ := trace.Stage(report.SectionReferences)
	assert.Equal(t, pipeline.OutcomeSucceeded, refs.Outcome)
	assert.Zero(t, refs.Attempts)

	for _, s := range doc.Sections {
		assert.False(t, s.Body.IsEmpty(), s.Name)
		if s.Name != report.SectionReferences {
			assert.True(t, s.Degraded, s.Name)
		}
	}

	results, _ := doc.Section(report.SectionResults)
	assert.Contains(t, results.Body.PlainText(), "The strongest configuration was Logistic Regression")
	assert.Contains(t, results.Body.PlainText(), "Model | Accuracy | ROC AUC")

	diagrams, _ := doc.Section(report.SectionDiagrams)
	assert.Contains(t, diagrams.Body.PlainText(), "Data Input -> Processing (pandas, scikit-learn)")
}

func TestRun_MethodologyKeepsSuccessfulParts(t *testing.T) {
	gw := &fakeGateway{fail: func(p string) bool {
		return strings.HasPrefix(p, "Write the Modeling Strategy part")
	}}
	p := newPipeline(t, report.Industry, gw, Deps{})
	doc, trace, err := p.Run(context.Background(), seeded(t))
	require.NoError(t, err)

	st, _ := trace.Stage(report.SectionMethodology)
	assert.Equal(t, pipeline.OutcomeDegraded, st.Outcome)
	assert.Equal(t, pipeline.UsePlaceholder, st.Policy)
	// Two parts succeed first time; the failing part is retried to the bound.
	assert.Equal(t, 2+3, st.Attempts)

	m, _ := doc.Section(report.SectionMethodology)
	text := m.Body.PlainText()
	assert.True(t, m.Degraded)
	assert.Contains(t, text, "The analysis loads the credit default data")
	assert.Contains(t, text, "The following model families were evaluated: Logistic Regression.")
	assert.Less(t, strings.Index(text, "Data Preparation"), strings.Index(text, "Modeling Strategy"))
	assert.Less(t, strings.Index(text, "Modeling Strategy"), strings.Index(text, "Validation"))
}

// vagueResults answers the results prompt with prose that quotes no numbers.
type vagueResults struct{ fakeGateway }

func (g *vagueResults) Generate(ctx context.Context, prompt string, params llm.Params) (string, error) {
	if strings.HasPrefix(prompt, "Present the quantitative findings") {
		return strings.Repeat("The models performed reasonably well on the held-out data overall. ", 6), nil
	}
	return g.fakeGateway.Generate(ctx, prompt, params)
}

func TestRun_ResultsMustQuoteAMetric(t *testing.T) {
	p := newPipeline(t, report.Academic, &vagueResults{}, Deps{Renderer: fakeRenderer{}})
	doc, trace, err := p.Run(context.Background(), seeded(t))
	require.NoError(t, err)

	st, _ := trace.Stage(report.SectionResults)
	assert.Equal(t, pipeline.OutcomeDegraded, st.Outcome)
	assert.Equal(t, defaultAttempts, st.Attempts)
	require.Len(t, st.Calls, 1)
	assert.Contains(t, st.Calls[0].Failures[0], "quotes none of the captured metric values")

	results, _ := doc.Section(report.SectionResults)
	assert.True(t, results.Degraded)
	assert.Contains(t, results.Body.PlainText(), "Logistic Regression | 0.81 | 0.72")
}

func TestQuotesMetric(t *testing.T) {
	rc := report.NewContext("")
	require.NoError(t, rc.AddFact(report.SeedProducer, report.FactMetricsTable,
		report.Table{Columns: []string{"Model", "Accuracy"}, Rows: [][]string{{"SVC", "0.85"}}}))
	check := quotesMetric(rc.View(report.ViewSpec{Facts: []string{report.FactMetricsTable}}))
	require.NotNil(t, check)

	assert.NoError(t, check("SVC reached 0.85 accuracy."))
	assert.NoError(t, check("SVC was right 85% of the time."))
	assert.Error(t, check("SVC did best."))

	empty := report.NewContext("")
	assert.Nil(t, quotesMetric(empty.View(report.ViewSpec{Facts: []string{report.FactMetricsTable}})))
}

func TestRun_UnavailableRendererDescribesDiagrams(t *testing.T) {
	p := newPipeline(t, report.Internship, &fakeGateway{}, Deps{})
	doc, trace, err := p.Run(context.Background(), seeded(t))
	require.NoError(t, err)

	st, _ := trace.Stage(report.SectionDiagrams)
	assert.Equal(t, pipeline.OutcomeDegraded, st.Outcome)
	assert.Empty(t, st.Policy)

	d, _ := doc.Section(report.SectionDiagrams)
	assert.True(t, d.Degraded)
	assert.Contains(t, d.Body.PlainText(), "Load Data -> Train Model")
	assert.Equal(t, []string{report.SectionDiagrams}, doc.DegradedSections())
}

func diagramArtifacts(doc *report.Document) []string {
	d, _ := doc.Section(report.SectionDiagrams)
	var refs []string
	for _, b := range d.Body.Blocks {
		if b.Kind == report.BlockDiagram {
			refs = append(refs, b.Diagram.Artifact)
		}
	}
	return refs
}

func TestRun_DiagramStyles(t *testing.T) {
	plot := ",\n" + `    {"output_type": "display_data", "data": {"image/png": "iVBORw0KGgo="}}`
	noPlots := strings.Replace(fixture, plot, "", 1)
	require.NotEqual(t, fixture, noPlots)

	tests := []struct {
		style  diagram.Style
		want   []string
		budget string
	}{
		{diagram.StyleMinimal, []string{"diagrams/architecture.png", "diagrams/data_flow.png"}, "3-4 nodes"},
		{diagram.StyleStandard, []string{"diagrams/architecture.png", "diagrams/data_flow.png", "diagrams/process_flow.png"}, "5-7 nodes"},
		{diagram.StyleDetailed, []string{
			"diagrams/architecture.png", "diagrams/data_flow.png",
			"diagrams/process_flow.png", "diagrams/results_overview.png",
		}, "8-12 nodes"},
	}
	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			nb, err := notebook.Parse(strings.NewReader(noPlots))
			require.NoError(t, err)
			rc, err := notebook.Seed(nb, notebook.SeedOptions{})
			require.NoError(t, err)

			gw := &fakeGateway{}
			p := newPipeline(t, report.Academic, gw, Deps{Renderer: fakeRenderer{}, DiagramStyle: tt.style, Year: "2025"})
			doc, _, err := p.Run(context.Background(), rc)
			require.NoError(t, err)

			assert.Equal(t, tt.want, diagramArtifacts(doc))
			assert.Contains(t, gw.find("Create a Mermaid flowchart of the system architecture"), tt.budget)
		})
	}
}
