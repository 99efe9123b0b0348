package app

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/josephgoksu/ReportWing/internal/config"
	"github.com/josephgoksu/ReportWing/internal/format"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/stages"
	"github.com/josephgoksu/ReportWing/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notebookJSON = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {"authors": [{"name": "Ada Lovelace"}]},
 "cells": [
  {"cell_type": "markdown", "source": "# Credit Default Prediction\nPredict which clients default next month."},
  {"cell_type": "code", "execution_count": 1, "source": "import pandas as pd\nfrom sklearn.linear_model import LogisticRegression\ndf = pd.read_csv('credit_default.csv')\nlr = LogisticRegression()",
   "outputs": [
    {"output_type": "stream", "name": "stdout", "text": "RangeIndex: 30000 entries, 0 to 29999\nLogistic Regression\nAccuracy: 0.81\nROC AUC: 0.72\n"}
   ]}
 ]
}`

const (
	replyJSON    = `{"title": "Credit Default Risk Modelling", "objectives": ["Predict default"], "data_sources": ["Kaggle credit dataset"], "key_findings": ["Logistic regression generalises best"], "models": ["Logistic Regression"]}`
	replyMermaid = "graph TD\n    A[Load Data] --> B[Train Model]"
	replyProse   = "The analysis loads the credit default data, cleans missing values and encodes categorical fields before any model is trained on it.\n\n" +
		"Logistic regression reached 0.81 accuracy with a ROC-AUC of 0.72 on a held-out split, and the results are discussed against the project objectives in detail."
)

// scriptedGateway answers by prompt kind.
type scriptedGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *scriptedGateway) Generate(_ context.Context, prompt string, _ llm.Params) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	switch {
	case strings.Contains(prompt, "Respond with ONLY a JSON object"):
		return replyJSON, nil
	case strings.Contains(prompt, "Generate ONLY valid Mermaid"):
		return replyMermaid, nil
	default:
		return replyProse, nil
	}
}

func testSettings() *config.Settings {
	return &config.Settings{
		LLM:      config.LLMSettings{Provider: "offline", Timeout: 5 * time.Second},
		Pipeline: config.PipelineSettings{RunTimeout: time.Minute, MaxConcurrency: 2},
		Report:   config.ReportSettings{Type: "academic", CitationStyle: "ieee", IncludeTOC: true},
		Diagram:  config.DiagramSettings{Renderer: "none"},
		Output:   config.OutputSettings{Dir: "out", Format: "markdown"},
		Client:   llm.Config{Provider: llm.ProviderOffline},
	}
}

func newTestApp(t *testing.T, opts ...Option) (*ReportApp, *Context, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "nb/credit.ipynb", []byte(notebookJSON), 0o644))

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	all := append([]Option{WithFs(fs), WithStore(st)}, opts...)
	ctx, err := NewContext(testSettings(), all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return NewReportApp(ctx), ctx, fs
}

func TestGenerate_OfflineWritesEveryFormat(t *testing.T) {
	a, actx, fs := newTestApp(t)

	var seen []string
	res, err := a.Generate(context.Background(), GenerateRequest{
		Notebook: "nb/credit.ipynb",
		Format:   "all",
		Offline:  true,
		OnStage:  func(st pipeline.StageTrace) { seen = append(seen, st.Stage) },
	})
	require.NoError(t, err)

	tmpl, err := report.TemplateFor(report.Academic)
	require.NoError(t, err)
	assert.Equal(t, tmpl.Names(), res.Document.Names())
	assert.Equal(t, stages.Order(tmpl), seen)

	analysis, ok := res.Trace.Stage(stages.NameAnalysis)
	require.True(t, ok)
	assert.Equal(t, pipeline.OutcomeSkipped, analysis.Outcome)

	stem := format.FileName(res.Document)
	assert.Equal(t, []string{"out/" + stem + ".md", "out/" + stem + ".json", "out/" + stem + ".yaml"}, res.Outputs)
	md, err := afero.ReadFile(fs, res.Outputs[0])
	require.NoError(t, err)
	assert.Equal(t, res.Markdown, string(md))
	assert.Contains(t, res.Markdown, "Ada Lovelace")
	assert.Contains(t, res.Markdown, "## Table of Contents")

	raw, err := afero.ReadFile(fs, res.Outputs[1])
	require.NoError(t, err)
	var structured map[string]any
	require.NoError(t, json.Unmarshal(raw, &structured))
	bibtex, _ := structured["bibtex"].(string)
	assert.True(t, strings.HasPrefix(bibtex, "@"), "bibtex: %q", bibtex)

	runs, err := a.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, res.Outputs, runs[0].Outputs)
	assert.Equal(t, "nb/credit.ipynb", runs[0].Notebook)

	assert.EqualValues(t, 1, actx.Metrics.Snapshot().TotalRuns)
}

func TestGenerate_WithGateway(t *testing.T) {
	gw := &scriptedGateway{}
	a, _, fs := newTestApp(t, WithGateway(gw))

	res, err := a.Generate(context.Background(), GenerateRequest{
		Notebook:   "nb/credit.ipynb",
		ReportType: "industry",
		Title:      "Default Risk Review",
		NoWrite:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Default Risk Review", res.Document.Title)
	assert.Equal(t, report.Industry, res.Document.ReportType)
	assert.True(t, strings.HasPrefix(res.Markdown, "# Default Risk Review\n"))
	assert.Empty(t, res.Outputs)
	assert.Positive(t, gw.calls)

	exists, err := afero.DirExists(fs, "out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGenerate_FallsBackToLastGoodSummary(t *testing.T) {
	a, _, _ := newTestApp(t, WithGateway(&scriptedGateway{}))
	req := GenerateRequest{Notebook: "nb/credit.ipynb", NoWrite: true}

	first, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	abstract, ok := first.Document.Section(report.SectionAbstract)
	require.True(t, ok)
	require.False(t, abstract.Degraded)

	req.Offline = true
	second, err := a.Generate(context.Background(), req)
	require.NoError(t, err)
	st, ok := second.Trace.Stage(report.SectionAbstract)
	require.True(t, ok)
	assert.True(t, st.LastGood)
	got, ok := second.Document.Section(report.SectionAbstract)
	require.True(t, ok)
	assert.Equal(t, abstract.Body, got.Body)
}

type stubPrinter struct{ pages int }

func (p *stubPrinter) PrintPDF(context.Context, []byte) ([]byte, error) {
	p.pages++
	return []byte("%PDF-1.7\n"), nil
}

func TestGenerate_PDFWithCodeListings(t *testing.T) {
	printer := &stubPrinter{}
	a, _, fs := newTestApp(t, WithGateway(&scriptedGateway{}), WithPrinter(printer))

	res, err := a.Generate(context.Background(), GenerateRequest{
		Notebook:    "nb/credit.ipynb",
		Format:      "pdf",
		Name:        "credit",
		IncludeCode: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"out/credit.pdf"}, res.Outputs)
	assert.Equal(t, 1, printer.pages)
	data, err := afero.ReadFile(fs, "out/credit.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	methodology, ok := res.Document.Section(report.SectionMethodology)
	require.True(t, ok)
	assert.Contains(t, methodology.Body.PlainText(), "from sklearn.linear_model import LogisticRegression")
	assert.Contains(t, res.Markdown, "### Code Listings")
	assert.Contains(t, res.Markdown, "```python")
}

func TestGenerateAll_Directory(t *testing.T) {
	a, _, fs := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "nb/archive/house_prices.ipynb", []byte(notebookJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "nb/.ipynb_checkpoints/credit-checkpoint.ipynb", []byte(notebookJSON), 0o644))

	results, err := a.GenerateAll(context.Background(), GenerateRequest{Notebook: "nb", Offline: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"out/house-prices.md"}, results[0].Outputs)
	assert.Equal(t, []string{"out/credit.md"}, results[1].Outputs)

	_, err = a.GenerateAll(context.Background(), GenerateRequest{Notebook: "nb", Name: "x", Offline: true})
	assert.ErrorContains(t, err, "single notebook")

	single, err := a.GenerateAll(context.Background(), GenerateRequest{Notebook: "nb/credit.ipynb", Name: "mine", Offline: true})
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, []string{"out/mine.md"}, single[0].Outputs)
}

func TestGenerate_Errors(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	_, err := a.Generate(ctx, GenerateRequest{Notebook: "nb/credit.ipynb", ReportType: "thesis", Offline: true})
	assert.Error(t, err)

	_, err = a.Generate(ctx, GenerateRequest{Notebook: "nb/credit.ipynb", Format: "docx", Offline: true})
	assert.ErrorContains(t, err, "unsupported format")

	_, err = a.Generate(ctx, GenerateRequest{Notebook: "nb/credit.ipynb", DiagramStyle: "fancy", Offline: true})
	assert.ErrorContains(t, err, "unknown diagram style")

	_, err = a.Generate(ctx, GenerateRequest{Notebook: "nb/missing.ipynb", Offline: true})
	assert.Error(t, err)

	runs, err := a.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHistory_Disabled(t *testing.T) {
	actx, err := NewContext(testSettings(), WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)
	_, err = NewReportApp(actx).History(context.Background(), 5)
	assert.ErrorContains(t, err, "disabled")
}

func TestTemplates(t *testing.T) {
	infos := Templates()
	require.Len(t, infos, len(report.Types()))
	for _, info := range infos {
		assert.Equal(t, stages.NameAnalysis, info.Stages[0])
		assert.Contains(t, info.Sections, report.SectionReferences)
	}
}

func TestRenderer(t *testing.T) {
	actx, err := NewContext(testSettings(), WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	for _, name := range []string{"auto", "mmdc", "chromedp", "none"} {
		actx.Settings.Diagram.Renderer = name
		r, err := actx.Renderer("out")
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}
	actx.Settings.Diagram.Renderer = "graphviz"
	_, err = actx.Renderer("out")
	assert.Error(t, err)
}
