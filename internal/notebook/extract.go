package notebook

import (
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/utils"
)

// Outputs groups code cell outputs by what they show.
type Outputs struct {
	Text   []string
	Plots  int
	Tables []string
	Errors []string
}

// Stats are notebook size counters.
type Stats struct {
	TotalCells     int
	CodeCells      int
	MarkdownCells  int
	TotalCodeLines int
	ExecutedCells  int
}

// Map returns the stats keyed the way the notebook_stats fact stores them.
func (s Stats) Map() map[string]int {
	return map[string]int{
		"total_cells":      s.TotalCells,
		"code_cells":       s.CodeCells,
		"markdown_cells":   s.MarkdownCells,
		"total_code_lines": s.TotalCodeLines,
		"executed_cells":   s.ExecutedCells,
	}
}

var (
	funcDefRegex  = regexp.MustCompile(`^\s*(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	headingRegex  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	readDataRegex = regexp.MustCompile(`read_(?:csv|excel|parquet|json|table)\(\s*[rf]?['"]([^'"]+)['"]`)

	rangeIndexRegex = regexp.MustCompile(`RangeIndex:\s*(\d+)\s+entries`)
	rowsColsRegex   = regexp.MustCompile(`(\d[\d,]*)\s+rows\s*[×x]\s*(\d+)\s+columns`)
	shapeRegex      = regexp.MustCompile(`^\s*\((\d+),\s*(\d+)\)\s*$`)

	metricRegex = regexp.MustCompile(`(?i)\b(accuracy|roc[ _-]?auc|auc|recall|precision)(?:\s+score)?\s*[:=]\s*([0-9]*\.?[0-9]+)(%?)`)
)

// Imports returns the distinct import statements in source order.
func (nb *Notebook) Imports() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range nb.CodeCells() {
		for _, line := range strings.Split(c.Source.String(), "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "import ") && !strings.HasPrefix(line, "from ") {
				continue
			}
			if !seen[line] {
				seen[line] = true
				out = append(out, line)
			}
		}
	}
	return out
}

// Functions returns the names of functions defined in code cells.
func (nb *Notebook) Functions() []string {
	var out []string
	for _, c := range nb.CodeCells() {
		for _, line := range strings.Split(c.Source.String(), "\n") {
			if m := funcDefRegex.FindStringSubmatch(line); m != nil {
				out = append(out, m[1])
			}
		}
	}
	return out
}

// Outline returns one "Heading: excerpt" entry per markdown cell. Cells
// without a heading contribute their excerpt alone.
func (nb *Notebook) Outline(maxExcerpt int) []string {
	var out []string
	for _, c := range nb.MarkdownCells() {
		src := strings.TrimSpace(c.Source.String())
		if src == "" {
			continue
		}
		lines := strings.Split(src, "\n")
		title := ""
		if m := headingRegex.FindStringSubmatch(strings.TrimSpace(lines[0])); m != nil {
			title = m[2]
			lines = lines[1:]
		}
		excerpt := utils.Truncate(strings.Join(strings.Fields(strings.Join(lines, " ")), " "), maxExcerpt)
		switch {
		case title != "" && excerpt != "":
			out = append(out, title+": "+excerpt)
		case title != "":
			out = append(out, title)
		default:
			out = append(out, excerpt)
		}
	}
	return out
}

// Title returns the notebook title: metadata title, then the first level-1
// heading, then the file name.
func (nb *Notebook) Title() string {
	if t := strings.TrimSpace(nb.Metadata.Title); t != "" {
		return t
	}
	for _, c := range nb.MarkdownCells() {
		for _, line := range strings.Split(c.Source.String(), "\n") {
			if m := headingRegex.FindStringSubmatch(strings.TrimSpace(line)); m != nil && len(m[1]) == 1 {
				return m[2]
			}
		}
	}
	if nb.Path != "" {
		base := strings.TrimSuffix(filepath.Base(nb.Path), filepath.Ext(nb.Path))
		return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
	}
	return "Untitled Notebook"
}

// Outputs categorizes every code cell output.
func (nb *Notebook) Outputs() Outputs {
	var out Outputs
	for _, c := range nb.CodeCells() {
		for _, o := range c.Outputs {
			switch o.OutputType {
			case OutputStream:
				if t := strings.TrimSpace(o.Text.String()); t != "" {
					out.Text = append(out.Text, t)
				}
			case OutputResult, OutputDisplay:
				if o.HasData("image/png") || o.HasData("image/jpeg") || o.HasData("image/svg+xml") {
					out.Plots++
				} else if html, ok := o.DataText("text/html"); ok {
					out.Tables = append(out.Tables, html)
				} else if t, ok := o.DataText("text/plain"); ok && strings.TrimSpace(t) != "" {
					out.Text = append(out.Text, strings.TrimSpace(t))
				}
			case OutputError:
				out.Errors = append(out.Errors, strings.TrimSpace(o.EName+": "+o.EValue))
			}
		}
	}
	return out
}

// Stats counts cells and code lines.
func (nb *Notebook) Stats() Stats {
	s := Stats{TotalCells: len(nb.Cells)}
	for _, c := range nb.Cells {
		switch c.CellType {
		case CellCode:
			s.CodeCells++
			s.TotalCodeLines += len(strings.Split(c.Source.String(), "\n"))
			if c.ExecutionCount != nil {
				s.ExecutedCells++
			}
		case CellMarkdown:
			s.MarkdownCells++
		}
	}
	return s
}

// CodeExcerpt returns the leading code, capped at maxChars.
func (nb *Notebook) CodeExcerpt(maxChars int) string {
	var parts []string
	for _, c := range nb.CodeCells() {
		if src := strings.TrimSpace(c.Source.String()); src != "" {
			parts = append(parts, src)
		}
	}
	return utils.Truncate(strings.Join(parts, "\n\n"), maxChars)
}

// CodeSnippets picks up to n representative code cells, each cut to
// maxLines lines. Cells that define functions or fit models are preferred;
// otherwise the first non-empty cells are used.
func (nb *Notebook) CodeSnippets(n, maxLines int) []string {
	var preferred, rest []string
	for _, c := range nb.CodeCells() {
		src := strings.TrimSpace(c.Source.String())
		if src == "" {
			continue
		}
		if lines := strings.Split(src, "\n"); len(lines) > maxLines {
			src = strings.Join(lines[:maxLines], "\n") + "\n# ..."
		}
		if strings.Contains(src, "def ") || strings.Contains(src, ".fit(") {
			preferred = append(preferred, src)
		} else {
			rest = append(rest, src)
		}
	}
	out := preferred
	if len(out) == 0 {
		out = rest
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DatasetName returns the base name of the first file loaded with a pandas
// read_* call.
func (nb *Notebook) DatasetName() string {
	for _, c := range nb.CodeCells() {
		if m := readDataRegex.FindStringSubmatch(c.Source.String()); m != nil {
			return path.Base(strings.ReplaceAll(m[1], `\`, "/"))
		}
	}
	return ""
}

// DatasetRows finds the dataset row count in printed DataFrame info, shape
// tuples or HTML table footers.
func (nb *Notebook) DatasetRows() (int, bool) {
	for _, c := range nb.CodeCells() {
		for _, o := range c.Outputs {
			for _, text := range outputTexts(o) {
				if m := rangeIndexRegex.FindStringSubmatch(text); m != nil {
					return atoi(m[1])
				}
				if m := rowsColsRegex.FindStringSubmatch(text); m != nil {
					return atoi(m[1])
				}
				for _, line := range strings.Split(text, "\n") {
					if m := shapeRegex.FindStringSubmatch(line); m != nil {
						return atoi(m[1])
					}
				}
			}
		}
	}
	return 0, false
}

func outputTexts(o Output) []string {
	var out []string
	if o.Text != "" {
		out = append(out, o.Text.String())
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		if t, ok := o.DataText(mime); ok {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n, err == nil
}

type modelPattern struct {
	name string
	code *regexp.Regexp
	text *regexp.Regexp
}

// Order matters: more specific names first.
var modelPatterns = []modelPattern{
	{"Logistic Regression", regexp.MustCompile(`\bLogisticRegression(CV)?\(`), regexp.MustCompile(`(?i)logistic\s*regression`)},
	{"Linear SVC", regexp.MustCompile(`\bLinearSVC\(`), regexp.MustCompile(`(?i)linear\s*svc`)},
	{"SVC", regexp.MustCompile(`\bSVC\(`), regexp.MustCompile(`(?i)\bsvc\b|support vector`)},
	{"Random Forest", regexp.MustCompile(`\bRandomForest(Classifier|Regressor)\(`), regexp.MustCompile(`(?i)random\s*forest`)},
	{"Decision Tree", regexp.MustCompile(`\bDecisionTree(Classifier|Regressor)\(`), regexp.MustCompile(`(?i)decision\s*tree`)},
	{"Gradient Boosting", regexp.MustCompile(`\bGradientBoosting(Classifier|Regressor)\(`), regexp.MustCompile(`(?i)gradient\s*boosting`)},
	{"XGBoost", regexp.MustCompile(`\bXGB(Classifier|Regressor)\(`), regexp.MustCompile(`(?i)xgboost|\bxgb`)},
	{"LightGBM", regexp.MustCompile(`\bLGBM(Classifier|Regressor)\(`), regexp.MustCompile(`(?i)lightgbm|\blgbm`)},
	{"K-Nearest Neighbors", regexp.MustCompile(`\bKNeighbors(Classifier|Regressor)\(`), regexp.MustCompile(`(?i)k-?nearest|\bknn\b`)},
	{"Naive Bayes", regexp.MustCompile(`\b(Gaussian|Multinomial|Bernoulli)NB\(`), regexp.MustCompile(`(?i)naive\s*bayes`)},
	{"Linear Regression", regexp.MustCompile(`\bLinearRegression\(`), regexp.MustCompile(`(?i)linear\s*regression`)},
	{"Neural Network", regexp.MustCompile(`\bMLP(Classifier|Regressor)\(|\bSequential\(`), regexp.MustCompile(`(?i)neural\s*net|\bmlp\b`)},
}

// DetectedModels lists the model families constructed in code, in first-use
// order.
func (nb *Notebook) DetectedModels() []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	offset := 0
	for _, c := range nb.CodeCells() {
		src := c.Source.String()
		for _, p := range modelPatterns {
			if loc := p.code.FindStringIndex(src); loc != nil {
				hits = append(hits, hit{p.name, offset + loc[0]})
			}
		}
		offset += len(src) + 1
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	seen := make(map[string]bool)
	var out []string
	for _, h := range hits {
		if !seen[h.name] {
			seen[h.name] = true
			out = append(out, h.name)
		}
	}
	return out
}

// ModelMetrics scans printed output for per-model accuracy, ROC-AUC, recall
// and precision figures. A metric is attributed to the most recently named
// model; models without accuracy or ROC-AUC are dropped.
func (nb *Notebook) ModelMetrics() []report.ModelScore {
	var order []string
	scores := make(map[string]*report.ModelScore)
	current := ""

	for _, text := range nb.Outputs().Text {
		for _, line := range strings.Split(text, "\n") {
			if name := modelNameIn(line); name != "" {
				current = name
			}
			if current == "" {
				continue
			}
			for _, m := range metricRegex.FindAllStringSubmatch(line, -1) {
				v, err := strconv.ParseFloat(m[2], 64)
				if err != nil {
					continue
				}
				if m[3] == "%" || v > 1 && v <= 100 {
					v /= 100
				}
				s, ok := scores[current]
				if !ok {
					s = &report.ModelScore{Model: current}
					scores[current] = s
					order = append(order, current)
				}
				switch metric := strings.ToLower(m[1]); {
				case metric == "accuracy":
					s.Accuracy = v
				case strings.Contains(metric, "auc"):
					s.ROCAUC = v
				case metric == "recall":
					if s.Recall == 0 {
						s.Recall = v
					}
				case metric == "precision":
					if s.Precision == 0 {
						s.Precision = v
					}
				}
			}
		}
	}

	var out []report.ModelScore
	for _, name := range order {
		if s := scores[name]; s.Accuracy > 0 || s.ROCAUC > 0 {
			out = append(out, *s)
		}
	}
	return out
}

func modelNameIn(line string) string {
	for _, p := range modelPatterns {
		if p.text.MatchString(line) {
			return p.name
		}
	}
	return ""
}
