package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var generated = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func sampleDoc() *report.Document {
	return &report.Document{
		ReportType: report.Academic,
		Title:      "Credit Default: Risk Modelling",
		Sections: []report.Section{
			{Name: "abstract", Title: "Abstract", OriginStage: "abstract", Body: report.Body{Blocks: []report.Block{
				report.Paragraph("We model default risk."),
			}}},
			{Name: "diagrams", Title: "Diagrams", OriginStage: "diagrams", Degraded: true, Body: report.Body{Blocks: []report.Block{
				report.Heading(3, "Data Flow Diagram"),
				report.DiagramBlock(report.DiagramRef{Kind: "data_flow", Title: "Data Flow Diagram", Source: "graph TD\n    A --> B", Artifact: "out/diagrams/data-flow.png", Format: "png"}),
			}}},
			{Name: "results", Title: "Results", OriginStage: "results", Body: report.Body{Blocks: []report.Block{
				report.Paragraph("Logistic regression performed best."),
				report.TableBlock(report.Table{Columns: []string{"Model", "Accuracy"}, Rows: [][]string{{"Logistic|Regression", "0.81"}}}),
				report.List(true, "first", "second"),
				report.Code("python", "model.fit(X, y)\n"),
			}}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		err  bool
	}{
		{"", Markdown, false},
		{"MD", Markdown, false},
		{"yml", YAML, false},
		{"json", JSON, false},
		{"all", All, false},
		{"pdf", PDF, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
	assert.Equal(t, []Format{Markdown, JSON, YAML}, All.Expand())
	assert.Equal(t, []Format{JSON}, JSON.Expand())
}

func TestMarkdown(t *testing.T) {
	out, err := MarkdownFormatter{}.Render(sampleDoc(), Options{
		IncludeTOC:  true,
		Author:      "Ada",
		Institution: "Example University",
		GeneratedAt: generated,
		AssetDir:    "out",
	})
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Credit Default: Risk Modelling\n\nAda · Example University\n\n*Generated by ReportWing on June 2, 2025*"))
	assert.Contains(t, md, "## Table of Contents\n\n1. [Abstract](#abstract)\n2. [Diagrams](#diagrams)\n3. [Results](#results)\n")
	assert.Contains(t, md, "## Abstract\n\nWe model default risk.\n\n---\n\n## Diagrams")
	assert.Contains(t, md, "<!-- diagrams: generated from fallback content -->")
	assert.Contains(t, md, "### Data Flow Diagram\n\n![Data Flow Diagram](diagrams/data-flow.png)\n\n```mermaid\ngraph TD\n    A --> B\n```")
	assert.Contains(t, md, "| Model | Accuracy |\n| --- | --- |\n| Logistic\\|Regression | 0.81 |\n")
	assert.Contains(t, md, "1. first\n2. second\n")
	assert.Contains(t, md, "```python\nmodel.fit(X, y)\n```")
	assert.True(t, strings.HasSuffix(md, "```\n"))
}

func TestMarkdown_NoTOC(t *testing.T) {
	out, err := MarkdownFormatter{}.Render(sampleDoc(), Options{GeneratedAt: generated})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Table of Contents")
	// Without an asset dir the artifact path is used as is.
	assert.Contains(t, string(out), "(out/diagrams/data-flow.png)")
}

func TestAnchor(t *testing.T) {
	assert.Equal(t, "learning-outcomes", anchor("Learning Outcomes"))
	assert.Equal(t, "methodology--design", anchor("Methodology & Design"))
	assert.Equal(t, "future_work", anchor("future_work"))
}

func TestJSON(t *testing.T) {
	doc := sampleDoc()
	trace := &pipeline.Trace{RunID: "r1", ReportType: report.Academic}
	out, err := JSONFormatter{Indent: "  "}.Render(doc, Options{GeneratedAt: generated, Trace: trace})
	require.NoError(t, err)

	var decoded struct {
		report.Document
		GeneratedAt time.Time       `json:"generated_at"`
		Trace       *pipeline.Trace `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))
	if diff := cmp.Diff(*doc, decoded.Document); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, generated.Equal(decoded.GeneratedAt))
	require.NotNil(t, decoded.Trace)
	assert.Equal(t, "r1", decoded.Trace.RunID)
}

func TestYAML(t *testing.T) {
	bib := "@misc{pandas,\n  title={pandas}\n}"
	out, err := YAMLFormatter{}.Render(sampleDoc(), Options{GeneratedAt: generated, Author: "Ada", BibTeX: bib})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "Credit Default: Risk Modelling", decoded["title"])
	assert.Equal(t, "academic", decoded["report_type"])
	assert.Equal(t, "Ada", decoded["author"])
	assert.Equal(t, bib, decoded["bibtex"])
	sections, ok := decoded["sections"].([]any)
	require.True(t, ok)
	assert.Len(t, sections, 3)
}

func TestWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "out")

	paths, err := w.Write(sampleDoc(), All, "", Options{GeneratedAt: generated})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"out/credit-default-risk-modelling.md",
		"out/credit-default-risk-modelling.json",
		"out/credit-default-risk-modelling.yaml",
	}, paths)
	for _, p := range paths {
		ok, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	md, err := afero.ReadFile(fs, paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(md), "![Data Flow Diagram](diagrams/data-flow.png)")

	paths, err = w.Write(&report.Document{Title: "!!!"}, JSON, "", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"out/report.json"}, paths)

	_, err = w.Write(nil, JSON, "", Options{})
	assert.Error(t, err)
}
