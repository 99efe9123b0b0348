package prompts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/spf13/afero"
)

// PromptKey is a type for identifying specific prompts.
type PromptKey string

const (
	KeySystem                 PromptKey = "system"
	KeyAnalysis               PromptKey = "analysis"
	KeyAbstract               PromptKey = "abstract"
	KeyExecutiveSummary       PromptKey = "executive_summary"
	KeyIntroduction           PromptKey = "introduction"
	KeyRelatedWork            PromptKey = "related_work"
	KeyMethodologyDataPrep    PromptKey = "methodology_data_preparation"
	KeyMethodologyModeling    PromptKey = "methodology_modeling_strategy"
	KeyMethodologyValidation  PromptKey = "methodology_validation"
	KeyImplementation         PromptKey = "implementation"
	KeyResults                PromptKey = "results"
	KeyDiscussion             PromptKey = "discussion"
	KeyRecommendations        PromptKey = "recommendations"
	KeyLearningOutcomes       PromptKey = "learning_outcomes"
	KeyConclusion             PromptKey = "conclusion"
	KeyFutureWork             PromptKey = "future_work"
	KeyDiagramArchitecture    PromptKey = "diagram_architecture"
	KeyDiagramDataFlow        PromptKey = "diagram_data_flow"
	KeyDiagramProcessFlow     PromptKey = "diagram_process_flow"
	KeyDiagramResultsOverview PromptKey = "diagram_results_overview"
)

// promptRegistry maps a PromptKey to its default content. The override file
// for a key is "<key>.tmpl" in the templates directory.
var promptRegistry = map[PromptKey]string{
	KeySystem:                 SystemPrompt,
	KeyAnalysis:               AnalysisPrompt,
	KeyAbstract:               AbstractPrompt,
	KeyExecutiveSummary:       ExecutiveSummaryPrompt,
	KeyIntroduction:           IntroductionPrompt,
	KeyRelatedWork:            RelatedWorkPrompt,
	KeyMethodologyDataPrep:    MethodologyDataPrepPrompt,
	KeyMethodologyModeling:    MethodologyModelingPrompt,
	KeyMethodologyValidation:  MethodologyValidationPrompt,
	KeyImplementation:         ImplementationPrompt,
	KeyResults:                ResultsPrompt,
	KeyDiscussion:             DiscussionPrompt,
	KeyRecommendations:        RecommendationsPrompt,
	KeyLearningOutcomes:       LearningOutcomesPrompt,
	KeyConclusion:             ConclusionPrompt,
	KeyFutureWork:             FutureWorkPrompt,
	KeyDiagramArchitecture:    DiagramArchitecturePrompt,
	KeyDiagramDataFlow:        DiagramDataFlowPrompt,
	KeyDiagramProcessFlow:     DiagramProcessFlowPrompt,
	KeyDiagramResultsOverview: DiagramResultsOverviewPrompt,
}

// Keys lists every registered prompt key in sorted order.
func Keys() []PromptKey {
	keys := make([]PromptKey, 0, len(promptRegistry))
	for k := range promptRegistry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Filename is the override file name for key.
func Filename(key PromptKey) string {
	return string(key) + ".tmpl"
}

// Data is what prompt templates are rendered with. Stages fill only the
// fields their prompt uses.
type Data struct {
	ReportType  string
	Title       string
	Summary     string
	Outline     string
	Code        string
	TextOutputs string
	Words       string
	Dataset     string
	Complexity  string
	BestModel   string
	Metrics     string
	Objectives  []string
	Models      []string
	Libraries   []string
	DataSources []string
	KeyFindings []string
	Functions   []string
	References  []string
	Plots       int
	Tables      int
	Errors      int
	CodeCells   int
	// Detail is the diagram style: minimal, standard or detailed.
	Detail string
	// Prior holds excerpts of finished sections, keyed by section name.
	Prior map[string]string
}

var funcs = template.FuncMap{
	"join": func(items []string, sep string) string { return strings.Join(items, sep) },
	"first": func(n int, items []string) []string {
		if len(items) > n {
			return items[:n]
		}
		return items
	},
	// nodes picks the node budget for a diagram style.
	"nodes": func(detail, minimal, standard, detailed string) string {
		switch detail {
		case "minimal":
			return minimal
		case "detailed":
			return detailed
		}
		return standard
	},
}

// Loader resolves prompts, preferring override files in dir over the
// built-in defaults. Parsed templates are cached.
type Loader struct {
	fs  afero.Fs
	dir string

	mu     sync.Mutex
	parsed map[PromptKey]*template.Template
	custom map[PromptKey]bool
}

// NewLoader returns a loader reading overrides from dir on fs. An empty dir
// disables overrides.
func NewLoader(fs afero.Fs, dir string) *Loader {
	return &Loader{fs: fs, dir: dir, parsed: make(map[PromptKey]*template.Template), custom: make(map[PromptKey]bool)}
}

// Get returns the raw template text for key.
func (l *Loader) Get(key PromptKey) (string, bool, error) {
	def, ok := promptRegistry[key]
	if !ok {
		return "", false, fmt.Errorf("unrecognized prompt key: %s", key)
	}
	if strings.TrimSpace(l.dir) == "" {
		return def, false, nil
	}

	path := filepath.Join(l.dir, Filename(key))
	content, err := afero.ReadFile(l.fs, path)
	if err == nil {
		return string(content), true, nil
	}
	if os.IsNotExist(err) {
		return def, false, nil
	}
	return "", false, fmt.Errorf("failed to read custom prompt file at %s: %w", path, err)
}

// Render executes the template for key with data.
func (l *Loader) Render(key PromptKey, data Data) (string, error) {
	tmpl, err := l.template(key)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func (l *Loader) template(key PromptKey) (*template.Template, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.parsed[key]; ok {
		return t, nil
	}
	text, custom, err := l.Get(key)
	if err != nil {
		return nil, err
	}
	t, err := template.New(string(key)).Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", key, err)
	}
	l.parsed[key] = t
	l.custom[key] = custom
	return t, nil
}

// Overrides lists the keys whose template came from an override file. Only
// keys that have been rendered are reported.
func (l *Loader) Overrides() []PromptKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []PromptKey
	for k, c := range l.custom {
		if c {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetPrompt returns the prompt text for key, using an override file in
// templatesDir on the OS filesystem when one exists.
func GetPrompt(key PromptKey, templatesDir string) (string, error) {
	text, _, err := NewLoader(afero.NewOsFs(), templatesDir).Get(key)
	return text, err
}
