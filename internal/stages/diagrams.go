package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/prompts"
	"go.uber.org/zap"
)

func init() {
	RegisterStageFactory(report.SectionDiagrams,
		"Generates Mermaid architecture, data flow, process and results diagrams and renders them",
		nil,
		func(deps Deps, _ []string) pipeline.Stage { return NewDiagramStage(deps) })
}

// Diagram kinds.
const (
	DiagramArchitecture    = "architecture"
	DiagramDataFlow        = "data_flow"
	DiagramProcessFlow     = "process_flow"
	DiagramResultsOverview = "results_overview"
)

type diagramKind struct {
	kind  string
	title string
	key   prompts.PromptKey
}

var diagramKinds = []diagramKind{
	{DiagramArchitecture, "System Architecture", prompts.KeyDiagramArchitecture},
	{DiagramDataFlow, "Data Flow", prompts.KeyDiagramDataFlow},
	{DiagramProcessFlow, "Process Flow", prompts.KeyDiagramProcessFlow},
	{DiagramResultsOverview, "Results Overview", prompts.KeyDiagramResultsOverview},
}

func kindByKey(key string) (diagramKind, bool) {
	for _, k := range diagramKinds {
		if string(k.key) == key {
			return k, true
		}
	}
	return diagramKind{}, false
}

// parseDiagram accepts raw model output when it yields a usable flowchart.
func parseDiagram(raw string) (diagram.Graph, error) {
	return diagram.ParseMermaid(diagram.Normalize(raw))
}

// DiagramStage produces the diagrams section. When no renderer is available
// each diagram is described by its node and edge lists and the section is
// marked degraded.
type DiagramStage struct {
	deps Deps
	desc pipeline.Descriptor
	log  *zap.Logger
}

// NewDiagramStage creates the diagrams stage.
func NewDiagramStage(deps Deps) *DiagramStage {
	return &DiagramStage{
		deps: deps,
		log:  deps.Logger.Named("diagrams"),
		desc: deps.apply(pipeline.Descriptor{
			Name:          report.SectionDiagrams,
			RequiredFacts: []string{report.FactProjectTitle, report.FactLibraries, report.FactDataSources, report.FactModelLineup},
			OptionalFacts: []string{report.FactNotebookStats, report.FactPlotCount, report.FactTableCount},
			AppendsFacts:  []string{report.FactFigures},
			Produces:      []string{report.SectionDiagrams},
			MaxAttempts:   2,
			Fallback:      pipeline.UsePlaceholder,
		}),
	}
}

func (s *DiagramStage) Descriptor() pipeline.Descriptor { return s.desc }

func (s *DiagramStage) Prepare(view *report.View) ([]pipeline.Call, error) {
	data := promptData(s.deps.ReportType, view)
	data.Detail = string(s.deps.DiagramStyle)
	var calls []pipeline.Call
	for _, k := range s.kinds(view) {
		prompt, err := s.deps.Prompts.Render(k.key, data)
		if err != nil {
			return nil, err
		}
		calls = append(calls, pipeline.Call{
			ID:     string(k.key),
			Prompt: prompt,
			Params: llm.Params{Temperature: 0.3, MaxTokens: 400},
			Check: func(raw string) error {
				_, err := parseDiagram(raw)
				return err
			},
		})
	}
	return calls, nil
}

// kinds lists the diagrams to draw for the configured style. Outside the
// detailed style the results overview needs plots.
func (s *DiagramStage) kinds(view *report.View) []diagramKind {
	plots, _ := view.Int(report.FactPlotCount)
	out := make([]diagramKind, 0, len(diagramKinds))
	for _, k := range diagramKinds {
		switch s.deps.DiagramStyle {
		case diagram.StyleMinimal:
			if k.kind != DiagramArchitecture && k.kind != DiagramDataFlow {
				continue
			}
		case diagram.StyleDetailed:
		default:
			if k.kind == DiagramResultsOverview && plots == 0 {
				continue
			}
		}
		out = append(out, k)
	}
	return out
}

func (s *DiagramStage) Invoke(ctx context.Context, caller *pipeline.Caller, view *report.View, calls []pipeline.Call) (pipeline.Result, error) {
	responses := caller.CallAll(ctx, calls)

	var (
		blocks   []report.Block
		figures  []any
		errs     []error
		degraded bool
	)
	for _, r := range responses {
		k, _ := kindByKey(r.CallID)
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k.kind, r.Err))
			continue
		}
		g, err := parseDiagram(r.Text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", k.kind, err))
			continue
		}
		b, fig, rendered := s.render(ctx, k, g)
		degraded = degraded || !rendered
		blocks = append(blocks, b...)
		figures = append(figures, fig)
	}

	sec := section(report.SectionDiagrams, blocks...)
	sec.Degraded = degraded
	res := pipeline.Result{Sections: []report.Section{sec}, Facts: []report.FactWrite{report.Append(report.FactFigures, figures...)}}
	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}

// render draws g, or describes it textually when rendering is unavailable.
func (s *DiagramStage) render(ctx context.Context, k diagramKind, g diagram.Graph) ([]report.Block, report.Figure, bool) {
	title := k.title + " Diagram"
	art, err := s.deps.Renderer.Render(ctx, k.kind, g)
	if err != nil {
		if !errors.Is(err, diagram.ErrUnavailable) {
			s.log.Warn("diagram render failed", zap.String("kind", k.kind), zap.Error(err))
		}
		return textualDiagram(title, g), report.Figure{Title: title, Source: "diagram"}, false
	}
	blocks := []report.Block{
		report.Heading(3, title),
		report.DiagramBlock(report.DiagramRef{Kind: k.kind, Title: title, Source: g.Mermaid(), Artifact: art.Path, Format: art.Format}),
	}
	return blocks, report.Figure{Title: title, Source: "diagram", Artifact: art.Path}, true
}

func textualDiagram(title string, g diagram.Graph) []report.Block {
	return []report.Block{
		report.Heading(3, title),
		report.Paragraph("Components:"),
		report.List(false, g.NodeList()...),
		report.Paragraph("Connections:"),
		report.List(false, g.EdgeList()...),
	}
}

func (s *DiagramStage) Validate(res pipeline.Result) error {
	if len(res.Sections) != 1 || res.Sections[0].Body.IsEmpty() {
		return errors.New("diagrams: no diagram was produced")
	}
	return nil
}

// Fallback keeps the diagrams that succeeded and describes the missing ones
// from a graph built out of known facts.
func (s *DiagramStage) Fallback(view *report.View, partial pipeline.Result) pipeline.Result {
	var done map[string][]report.Block
	if len(partial.Sections) > 0 {
		done = headed(partial.Sections[0].Body.Blocks)
	}
	var (
		blocks  []report.Block
		figures []any
	)
	for _, k := range s.kinds(view) {
		title := k.title + " Diagram"
		if b, ok := done[title]; ok {
			blocks = append(blocks, b...)
			continue
		}
		blocks = append(blocks, textualDiagram(title, defaultGraph(k.kind, view))...)
		figures = append(figures, report.Figure{Title: title, Source: "diagram"})
	}
	for _, w := range partial.Facts {
		if w.Key == report.FactFigures {
			figures = append(w.Items, figures...)
		}
	}
	sec := section(report.SectionDiagrams, blocks...)
	sec.Degraded = true
	return pipeline.Result{Sections: []report.Section{sec}, Facts: []report.FactWrite{report.Append(report.FactFigures, figures...)}}
}

// defaultGraph is a fact-based stand-in for a diagram the model did not draw.
func defaultGraph(kind string, view *report.View) diagram.Graph {
	chain := func(labels ...string) diagram.Graph {
		g := diagram.Graph{Direction: "TD"}
		for i, l := range labels {
			id := string(rune('A' + i))
			g.Nodes = append(g.Nodes, diagram.Node{ID: id, Label: l})
			if i > 0 {
				g.Edges = append(g.Edges, diagram.Edge{From: string(rune('A' + i - 1)), To: id})
			}
		}
		return g
	}
	switch kind {
	case DiagramArchitecture:
		return chain("Data Input",
			"Processing ("+joinOr(firstN(view.Strings(report.FactLibraries), 3), ", ", "Python")+")",
			"Models ("+joinOr(firstN(view.Strings(report.FactModelLineup), 3), ", ", "analysis")+")",
			"Output")
	case DiagramDataFlow:
		return chain(joinOr(firstN(view.Strings(report.FactDataSources), 1), "", "Data"), "Cleaning", "Transform", "Analysis", "Results")
	case DiagramResultsOverview:
		plots, _ := view.Int(report.FactPlotCount)
		tables, _ := view.Int(report.FactTableCount)
		g := diagram.Graph{Direction: "TD", Nodes: []diagram.Node{
			{ID: "A", Label: "Results"},
			{ID: "B", Label: fmt.Sprintf("Charts: %d", plots)},
			{ID: "C", Label: fmt.Sprintf("Tables: %d", tables)},
		}}
		g.Edges = []diagram.Edge{{From: "A", To: "B"}, {From: "A", To: "C"}}
		return g
	default:
		steps := view.Counts(report.FactNotebookStats)["code_cells"]
		return chain("Load Data", fmt.Sprintf("Process (%d code steps)", steps), "Evaluate", "Output")
	}
}
