package report

// SeedProducer is the provenance recorded for facts seeded from parsed input.
const SeedProducer = "input"

// Facts seeded from the parsed notebook. Every seed key below is always present.
const (
	FactNotebookTitle   = "notebook_title"
	FactMarkdownOutline = "markdown_outline"
	FactImports         = "imports"
	FactFunctions       = "functions"
	FactNotebookStats   = "notebook_stats"
	FactTextOutputs     = "text_outputs"
	FactCodeExcerpt     = "code_excerpt"
	FactPlotCount       = "plot_count"
	FactTableCount      = "table_count"
	FactErrorCount      = "error_count"
)

// Optional seed facts. Present only when the notebook reveals them.
const (
	FactDatasetRows    = "dataset_rows"
	FactDatasetName    = "dataset_name"
	FactDetectedModels = "detected_models"
	FactModelMetrics   = "model_metrics"
	FactAuthor         = "author"
	FactInstitution    = "institution"
	FactSupplementary  = "supplementary_notes"
	// FactCodeSnippets holds code listings; seeded only on request.
	FactCodeSnippets = "code_snippets"
)

// Facts derived by generation stages.
const (
	FactProjectTitle    = "project_title"
	FactObjectives      = "objectives"
	FactLibraries       = "libraries"
	FactDataSources     = "data_sources"
	FactComplexityLevel = "complexity_level"
	FactKeyFindings     = "key_findings"
	FactMetricsTable    = "metrics_table"
	FactModelLineup     = "model_lineup"
	FactFigures         = "figures"
	FactBestModel       = "best_model"
	FactBibliography    = "bibliography"
	FactCitationCount   = "citation_count"
)

// SeedKeys lists the facts every parsed input is guaranteed to carry.
func SeedKeys() []string {
	return []string{
		FactNotebookTitle, FactMarkdownOutline, FactImports, FactFunctions,
		FactNotebookStats, FactTextOutputs, FactCodeExcerpt,
		FactPlotCount, FactTableCount, FactErrorCount,
	}
}

// Figure is a figure the report can point readers at, either a notebook plot
// or a generated diagram.
type Figure struct {
	Title    string `json:"title" yaml:"title"`
	Source   string `json:"source" yaml:"source"`
	Artifact string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
}

// ModelScore is one row of model evaluation metrics.
type ModelScore struct {
	Model     string  `json:"model" yaml:"model"`
	Accuracy  float64 `json:"accuracy" yaml:"accuracy"`
	ROCAUC    float64 `json:"roc_auc" yaml:"roc_auc"`
	Recall    float64 `json:"recall" yaml:"recall"`
	Precision float64 `json:"precision" yaml:"precision"`
}

// FactWrite is a fact a stage asks the orchestrator to merge into the context.
// A plain write creates a new key; an append write extends (or creates) an
// ordered sequence.
type FactWrite struct {
	Key    string `json:"key"`
	Value  any    `json:"value,omitempty"`
	Items  []any  `json:"items,omitempty"`
	Append bool   `json:"append,omitempty"`
}

// Set builds a plain fact write.
func Set(key string, value any) FactWrite { return FactWrite{Key: key, Value: value} }

// Append builds a sequence append write.
func Append(key string, items ...any) FactWrite {
	return FactWrite{Key: key, Items: items, Append: true}
}

// AppendStrings is Append for string items.
func AppendStrings(key string, items ...string) FactWrite {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return FactWrite{Key: key, Items: out, Append: true}
}
