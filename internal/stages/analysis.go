package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/citation"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/utils"
	"github.com/josephgoksu/ReportWing/prompts"
)

func init() {
	RegisterStageFactory(NameAnalysis,
		"Reads the notebook and derives the project facts every section builds on",
		nil,
		func(deps Deps, _ []string) pipeline.Stage { return NewAnalysisStage(deps) })
}

// Complexity levels.
const (
	ComplexityLow    = "Low"
	ComplexityMedium = "Medium"
	ComplexityHigh   = "High"
)

// analysisReply is the JSON shape the analysis prompt asks for.
type analysisReply struct {
	Title       string   `json:"title"`
	Objectives  []string `json:"objectives"`
	DataSources []string `json:"data_sources"`
	KeyFindings []string `json:"key_findings"`
	Models      []string `json:"models"`
}

var errEmptyAnalysis = errors.New("analysis reply has no title, objectives or models")

func parseAnalysis(raw string) (analysisReply, error) {
	reply, err := utils.ExtractAndParseJSON[analysisReply](raw)
	if err != nil {
		return reply, err
	}
	if strings.TrimSpace(reply.Title) == "" && len(reply.Objectives) == 0 && len(reply.Models) == 0 {
		return reply, errEmptyAnalysis
	}
	return reply, nil
}

// AnalysisStage derives project-level facts. Its fallback computes every fact
// deterministically from the notebook, so later stages always have them.
type AnalysisStage struct {
	deps Deps
	desc pipeline.Descriptor
}

// NewAnalysisStage creates the analysis stage.
func NewAnalysisStage(deps Deps) *AnalysisStage {
	return &AnalysisStage{
		deps: deps,
		desc: deps.apply(pipeline.Descriptor{
			Name:          NameAnalysis,
			RequiredFacts: report.SeedKeys(),
			OptionalFacts: []string{
				report.FactDatasetRows, report.FactDatasetName, report.FactDetectedModels,
				report.FactModelMetrics, report.FactSupplementary,
			},
			ProvidesFacts: []string{
				report.FactProjectTitle, report.FactObjectives, report.FactLibraries,
				report.FactDataSources, report.FactComplexityLevel, report.FactKeyFindings,
				report.FactMetricsTable, report.FactModelLineup, report.FactFigures,
			},
			MaxAttempts: defaultAttempts,
			Fallback:    pipeline.SkipSection,
		}),
	}
}

func (s *AnalysisStage) Descriptor() pipeline.Descriptor { return s.desc }

func (s *AnalysisStage) Prepare(view *report.View) ([]pipeline.Call, error) {
	data := promptData(s.deps.ReportType, view)
	data.Code = utils.Truncate(data.Code, 1200)
	prompt, err := s.deps.Prompts.Render(prompts.KeyAnalysis, data)
	if err != nil {
		return nil, err
	}
	return []pipeline.Call{{
		ID:     string(prompts.KeyAnalysis),
		Prompt: prompt,
		Params: llm.Params{Temperature: 0.2, MaxTokens: 600},
		Check: func(raw string) error {
			_, err := parseAnalysis(raw)
			return err
		},
	}}, nil
}

func (s *AnalysisStage) Invoke(ctx context.Context, caller *pipeline.Caller, view *report.View, calls []pipeline.Call) (pipeline.Result, error) {
	raw, err := caller.Call(ctx, calls[0])
	if err != nil {
		return pipeline.Result{}, err
	}
	reply, err := parseAnalysis(raw)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("analysis reply: %w", err)
	}
	return pipeline.Result{Facts: analysisFacts(view, &reply)}, nil
}

func (s *AnalysisStage) Validate(res pipeline.Result) error {
	for _, w := range res.Facts {
		if w.Key == report.FactProjectTitle {
			if t, _ := w.Value.(string); strings.TrimSpace(t) != "" {
				return nil
			}
		}
	}
	return errors.New("analysis produced no project title")
}

func (s *AnalysisStage) Fallback(view *report.View, _ pipeline.Result) pipeline.Result {
	return pipeline.Result{Facts: analysisFacts(view, nil)}
}

// analysisFacts combines notebook heuristics with the model's reading, when
// there is one.
func analysisFacts(view *report.View, reply *analysisReply) []report.FactWrite {
	scores := view.Scores(report.FactModelMetrics)

	projectTitle := title(view)
	objectives := heuristicObjectives(view)
	sources := heuristicSources(view)
	findings := heuristicFindings(view, scores)
	var lineupModels []string
	for _, sc := range scores {
		lineupModels = append(lineupModels, sc.Model)
	}
	lineup := union(view.Strings(report.FactDetectedModels), lineupModels)

	if reply != nil {
		if t := strings.TrimSpace(reply.Title); t != "" {
			projectTitle = t
		}
		if len(reply.Objectives) > 0 {
			objectives = union(reply.Objectives)
		}
		sources = union(sources, reply.DataSources)
		findings = union(findings, reply.KeyFindings)
		lineup = union(lineup, reply.Models)
	}

	var figures []any
	plots, _ := view.Int(report.FactPlotCount)
	for i := 1; i <= plots; i++ {
		figures = append(figures, report.Figure{Title: fmt.Sprintf("Notebook figure %d", i), Source: "notebook"})
	}

	return []report.FactWrite{
		report.Set(report.FactProjectTitle, projectTitle),
		report.Set(report.FactObjectives, firstN(objectives, 5)),
		report.Set(report.FactLibraries, citation.Normalize(view.Strings(report.FactImports))),
		report.Set(report.FactDataSources, sources),
		report.Set(report.FactComplexityLevel, complexity(view)),
		report.Set(report.FactKeyFindings, firstN(findings, 6)),
		report.Set(report.FactMetricsTable, metricsTable(scores)),
		report.Set(report.FactModelLineup, lineup),
		report.Append(report.FactFigures, figures...),
	}
}

var objectiveMarkers = []string{"objective", "aim", "goal", "purpose"}

// heuristicObjectives reads objectives off outline entries whose heading
// names them, falling back to the first outline excerpt.
func heuristicObjectives(view *report.View) []string {
	outline := view.Strings(report.FactMarkdownOutline)
	var out []string
	for _, entry := range outline {
		heading, excerpt, ok := strings.Cut(entry, ": ")
		if !ok {
			continue
		}
		h := strings.ToLower(heading)
		for _, m := range objectiveMarkers {
			if strings.Contains(h, m) {
				out = append(out, strings.TrimSpace(excerpt))
				break
			}
		}
	}
	if len(out) == 0 && len(outline) > 0 {
		if _, excerpt, ok := strings.Cut(outline[0], ": "); ok {
			out = append(out, strings.TrimSpace(excerpt))
		}
	}
	if len(out) == 0 {
		out = append(out, "Analyse "+title(view))
	}
	return out
}

var sourcePatterns = []struct {
	markers []string
	label   string
}{
	{[]string{"read_csv", "read_excel", "read_parquet", "read_json"}, "CSV/Excel files"},
	{[]string{"read_sql", "sqlalchemy", "sqlite3", "psycopg"}, "Database"},
	{[]string{"requests.get", "urllib", "read_html"}, "Web API"},
}

func heuristicSources(view *report.View) []string {
	code := strings.ToLower(view.String(report.FactCodeExcerpt))
	var out []string
	for _, p := range sourcePatterns {
		for _, m := range p.markers {
			if strings.Contains(code, m) {
				out = append(out, p.label)
				break
			}
		}
	}
	if name := view.String(report.FactDatasetName); name != "" {
		out = append(out, "Dataset: "+name)
	}
	return out
}

func heuristicFindings(view *report.View, scores []report.ModelScore) []string {
	var out []string
	if n, _ := view.Int(report.FactPlotCount); n > 0 {
		out = append(out, fmt.Sprintf("Generated %d visualizations", n))
	}
	if len(scores) > 0 {
		out = append(out, "Performance metrics calculated")
		if best, ok := bestModel(scores); ok {
			out = append(out, "Strongest model: "+describeScore(best))
		}
	}
	if n, _ := view.Int(report.FactErrorCount); n > 0 {
		out = append(out, fmt.Sprintf("Encountered %d errors during execution", n))
	}
	return out
}

func complexity(view *report.View) string {
	lines := view.Counts(report.FactNotebookStats)["total_code_lines"]
	funcs := len(view.Strings(report.FactFunctions))
	switch {
	case lines > 500 || funcs > 10:
		return ComplexityHigh
	case lines > 200 || funcs > 5:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}
