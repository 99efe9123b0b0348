// Package citation builds the bibliography for a report from the libraries a
// notebook imports.
package citation

import (
	"sort"
	"strings"
)

// Entry is one bibliographic record.
type Entry struct {
	Key     string `json:"key" yaml:"key"`
	Kind    string `json:"kind" yaml:"kind"` // article, misc, book, inproceedings
	Authors string `json:"authors" yaml:"authors"`
	Title   string `json:"title" yaml:"title"`
	Year    string `json:"year" yaml:"year"`
	Venue   string `json:"venue,omitempty" yaml:"venue,omitempty"`
	Volume  string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Pages   string `json:"pages,omitempty" yaml:"pages,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Generic bool   `json:"generic,omitempty" yaml:"generic,omitempty"`
}

// CloneValue lets entries live in the report context.
func (e Entry) CloneValue() any { return e }

var catalog = map[string]Entry{
	"pandas": {
		Kind:    "misc",
		Authors: "The pandas development team",
		Title:   "pandas-dev/pandas: Powerful data structures for data analysis, time series, and statistics",
		Year:    "2023",
		URL:     "https://github.com/pandas-dev/pandas",
	},
	"numpy": {
		Kind:    "article",
		Authors: "Harris, C. R., Millman, K. J., van der Walt, S. J., et al.",
		Title:   "Array programming with NumPy",
		Year:    "2020",
		Venue:   "Nature",
		Volume:  "585",
		Pages:   "357-362",
	},
	"matplotlib": {
		Kind:    "article",
		Authors: "Hunter, J. D.",
		Title:   "Matplotlib: A 2D graphics environment",
		Year:    "2007",
		Venue:   "Computing in Science & Engineering",
		Volume:  "9",
		Pages:   "90-95",
	},
	"seaborn": {
		Kind:    "article",
		Authors: "Waskom, M. L.",
		Title:   "seaborn: statistical data visualization",
		Year:    "2021",
		Venue:   "Journal of Open Source Software",
		Volume:  "6",
		Pages:   "3021",
	},
	"scikit-learn": {
		Kind:    "article",
		Authors: "Pedregosa, F., Varoquaux, G., Gramfort, A., et al.",
		Title:   "Scikit-learn: Machine Learning in Python",
		Year:    "2011",
		Venue:   "Journal of Machine Learning Research",
		Volume:  "12",
		Pages:   "2825-2830",
	},
	"tensorflow": {
		Kind:    "misc",
		Authors: "Abadi, M., Agarwal, A., Barham, P., et al.",
		Title:   "TensorFlow: Large-scale machine learning on heterogeneous systems",
		Year:    "2015",
		URL:     "https://www.tensorflow.org/",
	},
	"pytorch": {
		Kind:    "inproceedings",
		Authors: "Paszke, A., Gross, S., Massa, F., et al.",
		Title:   "PyTorch: An Imperative Style, High-Performance Deep Learning Library",
		Year:    "2019",
		Venue:   "Advances in Neural Information Processing Systems",
		Volume:  "32",
	},
	"jupyter": {
		Kind:    "inproceedings",
		Authors: "Kluyver, T., Ragan-Kelley, B., Pérez, F., et al.",
		Title:   "Jupyter Notebooks - a publishing format for reproducible computational workflows",
		Year:    "2016",
		Venue:   "Positioning and Power in Academic Publishing: Players, Agents and Agendas",
		Pages:   "87-90",
	},
	"xgboost": {
		Kind:    "inproceedings",
		Authors: "Chen, T., & Guestrin, C.",
		Title:   "XGBoost: A Scalable Tree Boosting System",
		Year:    "2016",
		Venue:   "Proceedings of the 22nd ACM SIGKDD International Conference on Knowledge Discovery and Data Mining",
		Pages:   "785-794",
	},
	"lightgbm": {
		Kind:    "inproceedings",
		Authors: "Ke, G., Meng, Q., Finley, T., et al.",
		Title:   "LightGBM: A Highly Efficient Gradient Boosting Decision Tree",
		Year:    "2017",
		Venue:   "Advances in Neural Information Processing Systems",
		Volume:  "30",
	},
}

// Tools every notebook report cites regardless of imports.
var tools = []Entry{
	{
		Key:     "python",
		Kind:    "book",
		Authors: "Van Rossum, G., & Drake, F. L.",
		Title:   "Python 3 Reference Manual",
		Year:    "2009",
		Venue:   "CreateSpace",
	},
	{
		Key:     "jupyter",
		Kind:    "inproceedings",
		Authors: "Kluyver, T., Ragan-Kelley, B., Pérez, F., et al.",
		Title:   "Jupyter Notebooks - a publishing format for reproducible computational workflows",
		Year:    "2016",
		Venue:   "Positioning and Power in Academic Publishing: Players, Agents and Agendas",
		Pages:   "87-90",
	},
}

var aliases = map[string]string{
	"sklearn": "scikit-learn",
	"pd":      "pandas",
	"np":      "numpy",
	"plt":     "matplotlib",
	"sns":     "seaborn",
	"torch":   "pytorch",
	"tf":      "tensorflow",
	"xgb":     "xgboost",
	"lgb":     "lightgbm",
}

var stdlib = map[string]bool{
	"warnings": true, "os": true, "sys": true, "json": true, "csv": true,
	"re": true, "time": true, "datetime": true, "collections": true,
	"math": true, "random": true, "itertools": true, "functools": true,
	"pathlib": true, "typing": true, "pickle": true, "logging": true,
	"sqlite3": true, "urllib": true, "glob": true, "copy": true, "string": true,
	"__future__": true,
}

// Normalize reduces import statements ("from sklearn.metrics import f1_score",
// "import pandas as pd") or bare names to a sorted, de-duplicated list of
// canonical library names. Standard-library modules are dropped.
func Normalize(imports []string) []string {
	seen := make(map[string]bool)
	for _, imp := range imports {
		for _, base := range baseNames(imp) {
			if base == "" || stdlib[base] {
				continue
			}
			if canonical, ok := aliases[base]; ok {
				base = canonical
			}
			seen[base] = true
		}
	}
	out := make([]string, 0, len(seen))
	for lib := range seen {
		out = append(out, lib)
	}
	sort.Strings(out)
	return out
}

func baseNames(imp string) []string {
	imp = strings.TrimSpace(imp)
	switch {
	case strings.HasPrefix(imp, "from "):
		fields := strings.Fields(imp)
		if len(fields) < 2 || strings.HasPrefix(fields[1], ".") {
			return nil
		}
		return []string{root(fields[1])}
	case strings.HasPrefix(imp, "import "):
		var out []string
		for _, part := range strings.Split(strings.TrimPrefix(imp, "import "), ",") {
			part = strings.TrimSpace(part)
			if i := strings.Index(part, " as "); i >= 0 {
				part = part[:i]
			}
			out = append(out, root(part))
		}
		return out
	default:
		return []string{root(imp)}
	}
}

func root(module string) string {
	module = strings.TrimSpace(module)
	if i := strings.IndexByte(module, '.'); i >= 0 {
		module = module[:i]
	}
	return strings.ToLower(module)
}

// Lookup returns the catalog entry for a canonical library name, or a
// generic entry for libraries the catalog does not know.
func Lookup(lib, year string) Entry {
	key := strings.ToLower(lib)
	if e, ok := catalog[key]; ok {
		e.Key = key
		return e
	}
	return Entry{
		Key:     key,
		Kind:    "misc",
		Authors: lib + " development team",
		Title:   lib + ": Python library",
		Year:    year,
		Generic: true,
	}
}

// Known reports whether the catalog has a curated entry for lib.
func Known(lib string) bool {
	_, ok := catalog[strings.ToLower(lib)]
	return ok
}
