package notebook

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/utils"
)

// Limits on how much raw notebook text reaches the context.
const (
	maxTextOutputs   = 20
	maxOutputChars   = 500
	maxOutlineChars  = 200
	maxCodeExcerpt   = 1500
	maxSummaryImport = 8
	maxSnippets      = 3
	// DefaultSnippetLines caps each code listing.
	DefaultSnippetLines = 50
)

var optionalSeeds = []string{
	report.FactDatasetRows, report.FactDatasetName, report.FactDetectedModels,
	report.FactModelMetrics, report.FactAuthor, report.FactInstitution, report.FactSupplementary,
	report.FactCodeSnippets,
}

// SeedOptions carries user-supplied facts that the notebook cannot reveal.
type SeedOptions struct {
	Author        string
	Institution   string
	Supplementary string
	// IncludeCode seeds code listings for the methodology and
	// implementation sections.
	IncludeCode bool
	// MaxSnippetLines caps each listing; zero means DefaultSnippetLines.
	MaxSnippetLines int
}

// Seed builds the run context: a source summary plus every seed fact. The
// keys in report.SeedKeys are always present; optional seeds are added only
// when detected or supplied.
func Seed(nb *Notebook, opts SeedOptions) (*report.Context, error) {
	outputs := nb.Outputs()
	stats := nb.Stats()

	texts := make([]string, 0, min(len(outputs.Text), maxTextOutputs))
	for i, t := range outputs.Text {
		if i == maxTextOutputs {
			break
		}
		texts = append(texts, utils.Truncate(t, maxOutputChars))
	}

	rc := report.NewContext(Summary(nb))
	if nb.Path != "" {
		rc.SetProject(projectID(nb.Path))
	}
	seeds := []struct {
		key   string
		value any
	}{
		{report.FactNotebookTitle, nb.Title()},
		{report.FactMarkdownOutline, nonNil(nb.Outline(maxOutlineChars))},
		{report.FactImports, nonNil(nb.Imports())},
		{report.FactFunctions, nonNil(nb.Functions())},
		{report.FactNotebookStats, stats.Map()},
		{report.FactTextOutputs, texts},
		{report.FactCodeExcerpt, nb.CodeExcerpt(maxCodeExcerpt)},
		{report.FactPlotCount, outputs.Plots},
		{report.FactTableCount, len(outputs.Tables)},
		{report.FactErrorCount, len(outputs.Errors)},
	}

	optional := map[string]any{}
	if rows, ok := nb.DatasetRows(); ok {
		optional[report.FactDatasetRows] = rows
	}
	if name := nb.DatasetName(); name != "" {
		optional[report.FactDatasetName] = name
	}
	if models := nb.DetectedModels(); len(models) > 0 {
		optional[report.FactDetectedModels] = models
	}
	if scores := nb.ModelMetrics(); len(scores) > 0 {
		optional[report.FactModelMetrics] = scores
	}
	author := opts.Author
	if author == "" {
		names := make([]string, 0, len(nb.Metadata.Authors))
		for _, a := range nb.Metadata.Authors {
			if a.Name != "" {
				names = append(names, a.Name)
			}
		}
		author = strings.Join(names, ", ")
	}
	if author != "" {
		optional[report.FactAuthor] = author
	}
	if opts.Institution != "" {
		optional[report.FactInstitution] = opts.Institution
	}
	if opts.Supplementary != "" {
		optional[report.FactSupplementary] = opts.Supplementary
	}
	if opts.IncludeCode {
		lines := opts.MaxSnippetLines
		if lines <= 0 {
			lines = DefaultSnippetLines
		}
		if snippets := nb.CodeSnippets(maxSnippets, lines); len(snippets) > 0 {
			optional[report.FactCodeSnippets] = snippets
		}
	}

	for _, s := range seeds {
		if err := rc.AddFact(report.SeedProducer, s.key, s.value); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.key, err)
		}
	}
	for _, key := range optionalSeeds {
		if v, ok := optional[key]; ok {
			if err := rc.AddFact(report.SeedProducer, key, v); err != nil {
				return nil, fmt.Errorf("seed %s: %w", key, err)
			}
		}
	}
	return rc, nil
}

// OptionalSeedKeys lists the seed facts present for this notebook beyond
// report.SeedKeys.
func OptionalSeedKeys(rc *report.Context) []string {
	var out []string
	for _, key := range optionalSeeds {
		if rc.Has(key) {
			out = append(out, key)
		}
	}
	return out
}

// Summary is the condensed description handed to every stage.
func Summary(nb *Notebook) string {
	stats := nb.Stats()
	outputs := nb.Outputs()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Notebook %q: %d cells (%d code, %d markdown), %d lines of code, %d functions.",
		nb.Title(), stats.TotalCells, stats.CodeCells, stats.MarkdownCells, stats.TotalCodeLines, len(nb.Functions()))
	if imports := nb.Imports(); len(imports) > 0 {
		if len(imports) > maxSummaryImport {
			imports = append(imports[:maxSummaryImport:maxSummaryImport], fmt.Sprintf("and %d more", len(imports)-maxSummaryImport))
		}
		fmt.Fprintf(&sb, " Imports: %s.", strings.Join(imports, "; "))
	}
	fmt.Fprintf(&sb, " Outputs: %d text, %d plots, %d tables, %d errors.",
		len(outputs.Text), outputs.Plots, len(outputs.Tables), len(outputs.Errors))
	if name := nb.DatasetName(); name != "" {
		fmt.Fprintf(&sb, " Dataset: %s", name)
		if rows, ok := nb.DatasetRows(); ok {
			fmt.Fprintf(&sb, " (%d rows)", rows)
		}
		sb.WriteString(".")
	}
	return sb.String()
}

// projectID is the cleaned absolute notebook path, so one notebook keeps the
// same identity however it is addressed.
func projectID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
