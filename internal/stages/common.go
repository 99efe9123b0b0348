package stages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/utils"
	"github.com/josephgoksu/ReportWing/prompts"
)

const (
	defaultAttempts = 3
	// priorExcerpt bounds how much of a referenced section goes into a prompt.
	priorExcerpt = 600
)

// Facts every narrative stage reads. All are provided by the analysis stage.
var narrativeRequired = []string{
	report.FactProjectTitle,
	report.FactObjectives,
	report.FactLibraries,
	report.FactDataSources,
	report.FactComplexityLevel,
	report.FactKeyFindings,
	report.FactModelLineup,
}

// Facts narrative prompts draw on when they are present.
var narrativeOptional = []string{
	report.FactMarkdownOutline,
	report.FactCodeExcerpt,
	report.FactTextOutputs,
	report.FactFunctions,
	report.FactNotebookStats,
	report.FactPlotCount,
	report.FactTableCount,
	report.FactErrorCount,
	report.FactDatasetRows,
	report.FactDatasetName,
	report.FactModelMetrics,
	report.FactSupplementary,
	report.FactBestModel,
	report.FactCodeSnippets,
}

// promptData fills prompt fields from whatever facts the view exposes.
func promptData(reportType report.Type, view *report.View) prompts.Data {
	d := prompts.Data{
		ReportType:  string(reportType),
		Title:       title(view),
		Summary:     view.SourceSummary(),
		Outline:     strings.Join(view.Strings(report.FactMarkdownOutline), "\n"),
		Code:        view.String(report.FactCodeExcerpt),
		TextOutputs: utils.Truncate(strings.Join(view.Strings(report.FactTextOutputs), "\n"), 1500),
		Dataset:     datasetPhrase(view),
		Complexity:  view.String(report.FactComplexityLevel),
		BestModel:   bestModelPhrase(view),
		Metrics:     metricsPhrase(view.Scores(report.FactModelMetrics)),
		Objectives:  view.Strings(report.FactObjectives),
		Models:      view.Strings(report.FactModelLineup),
		Libraries:   view.Strings(report.FactLibraries),
		DataSources: view.Strings(report.FactDataSources),
		KeyFindings: view.Strings(report.FactKeyFindings),
		Functions:   view.Strings(report.FactFunctions),
	}
	if len(d.Models) == 0 {
		d.Models = view.Strings(report.FactDetectedModels)
	}
	d.Plots, _ = view.Int(report.FactPlotCount)
	d.Tables, _ = view.Int(report.FactTableCount)
	d.Errors, _ = view.Int(report.FactErrorCount)
	d.CodeCells = view.Counts(report.FactNotebookStats)["code_cells"]
	if notes := view.String(report.FactSupplementary); notes != "" {
		d.Outline = strings.TrimSpace(d.Outline + "\nSupplementary notes: " + utils.Truncate(notes, 800))
	}
	return d
}

// withPrior attaches excerpts of referenced sections.
func withPrior(d prompts.Data, view *report.View, refs []string) prompts.Data {
	for _, ref := range refs {
		for _, s := range view.Sections(ref) {
			text := s.Body.PlainText()
			if text == "" {
				continue
			}
			if d.Prior == nil {
				d.Prior = make(map[string]string)
			}
			d.Prior[s.Name] = utils.Truncate(strings.Join(strings.Fields(text), " "), priorExcerpt)
		}
	}
	return d
}

func title(view *report.View) string {
	for _, k := range []string{report.FactProjectTitle, report.FactNotebookTitle} {
		if t := strings.TrimSpace(view.String(k)); t != "" {
			return t
		}
	}
	return "Untitled Project"
}

func datasetPhrase(view *report.View) string {
	name := view.String(report.FactDatasetName)
	rows, hasRows := view.Int(report.FactDatasetRows)
	switch {
	case name != "" && hasRows:
		return fmt.Sprintf("%d records from %s", rows, name)
	case hasRows:
		return fmt.Sprintf("%d records", rows)
	case name != "":
		return name
	default:
		return "the project dataset"
	}
}

// bestModel picks the strongest row by ROC-AUC, then accuracy.
func bestModel(scores []report.ModelScore) (report.ModelScore, bool) {
	if len(scores) == 0 {
		return report.ModelScore{}, false
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.ROCAUC > best.ROCAUC || s.ROCAUC == best.ROCAUC && s.Accuracy > best.Accuracy {
			best = s
		}
	}
	return best, true
}

func describeScore(s report.ModelScore) string {
	parts := []string{s.Model}
	if s.Accuracy > 0 {
		parts = append(parts, fmt.Sprintf("accuracy %.2f", s.Accuracy))
	}
	if s.ROCAUC > 0 {
		parts = append(parts, fmt.Sprintf("ROC-AUC %.2f", s.ROCAUC))
	}
	return strings.Join(parts, ", ")
}

func bestModelPhrase(view *report.View) string {
	if b := view.String(report.FactBestModel); b != "" {
		return b
	}
	if best, ok := bestModel(view.Scores(report.FactModelMetrics)); ok {
		return describeScore(best)
	}
	return "the best-performing configuration reported in the notebook"
}

func metricsPhrase(scores []report.ModelScore) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, describeScore(s))
	}
	return strings.Join(parts, "; ")
}

var metricsColumns = []string{"Model", "Accuracy", "ROC AUC", "Recall (Class 1)", "Precision (Class 1)"}

func metricsTable(scores []report.ModelScore) report.Table {
	t := report.Table{Columns: append([]string(nil), metricsColumns...), Rows: [][]string{}}
	for _, s := range scores {
		t.Rows = append(t.Rows, []string{s.Model, metric(s.Accuracy), metric(s.ROCAUC), metric(s.Recall), metric(s.Precision)})
	}
	return t
}

func metric(v float64) string {
	if v <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// prose turns raw model output into paragraph blocks.
func prose(raw string) []report.Block {
	var out []report.Block
	for _, p := range utils.Paragraphs(utils.StripLeadingHeadings(utils.StripCodeFence(raw))) {
		out = append(out, report.Paragraph(p))
	}
	return out
}

var errNoProse = errors.New("no prose paragraphs")

// proseCheck validates narrative output before it is accepted.
func proseCheck(minWords, maxParagraphs int) func(string) error {
	return func(raw string) error {
		paras := utils.Paragraphs(utils.StripLeadingHeadings(utils.StripCodeFence(raw)))
		if len(paras) == 0 {
			return errNoProse
		}
		if maxParagraphs > 0 && len(paras) > maxParagraphs {
			return fmt.Errorf("expected at most %d paragraphs, got %d", maxParagraphs, len(paras))
		}
		words := 0
		for _, p := range paras {
			words += utils.WordCount(p)
		}
		if words < minWords {
			return fmt.Errorf("expected at least %d words, got %d", minWords, words)
		}
		return nil
	}
}

// allOf runs every non-nil check in order and returns the first failure.
func allOf(checks ...func(string) error) func(string) error {
	return func(raw string) error {
		for _, c := range checks {
			if c == nil {
				continue
			}
			if err := c(raw); err != nil {
				return err
			}
		}
		return nil
	}
}

func section(name string, blocks ...report.Block) report.Section {
	return report.Section{Name: name, Body: report.Body{Blocks: blocks}}
}

// headed splits blocks into groups keyed by their level-3 heading text.
func headed(blocks []report.Block) map[string][]report.Block {
	out := make(map[string][]report.Block)
	current := ""
	for _, b := range blocks {
		if b.Kind == report.BlockHeading && b.Level == 3 {
			current = b.Text
		}
		if current != "" {
			out[current] = append(out[current], b.Clone())
		}
	}
	return out
}

// union merges string lists, keeping first-seen order and dropping
// case-insensitive duplicates.
func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, s := range l {
			s = strings.TrimSpace(s)
			k := strings.ToLower(s)
			if s == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func joinOr(items []string, sep, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, sep)
}
