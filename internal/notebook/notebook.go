// Package notebook parses Jupyter notebooks (.ipynb) into the facts a report
// run is seeded with.
package notebook

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Cell types.
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
	CellRaw      = "raw"
)

// Output types.
const (
	OutputStream  = "stream"
	OutputResult  = "execute_result"
	OutputDisplay = "display_data"
	OutputError   = "error"
)

// Text is notebook text that may be stored as one string or a list of lines.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("text must be a string or list of strings: %w", err)
	}
	*t = Text(strings.Join(lines, ""))
	return nil
}

func (t Text) String() string { return string(t) }

// Output is a code cell output.
type Output struct {
	OutputType string                     `json:"output_type"`
	Name       string                     `json:"name,omitempty"`
	Text       Text                       `json:"text,omitempty"`
	Data       map[string]json.RawMessage `json:"data,omitempty"`
	EName      string                     `json:"ename,omitempty"`
	EValue     string                     `json:"evalue,omitempty"`
}

// HasData reports whether the output carries a MIME bundle entry.
func (o Output) HasData(mime string) bool {
	_, ok := o.Data[mime]
	return ok
}

// DataText returns a textual MIME bundle entry.
func (o Output) DataText(mime string) (string, bool) {
	raw, ok := o.Data[mime]
	if !ok {
		return "", false
	}
	var t Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return "", false
	}
	return string(t), true
}

// Cell is one notebook cell.
type Cell struct {
	CellType       string   `json:"cell_type"`
	Source         Text     `json:"source"`
	ExecutionCount *int     `json:"execution_count,omitempty"`
	Outputs        []Output `json:"outputs,omitempty"`
}

// Author is a notebook metadata author entry.
type Author struct {
	Name string `json:"name"`
}

// Metadata is the subset of notebook metadata the report uses.
type Metadata struct {
	Title        string   `json:"title,omitempty"`
	Authors      []Author `json:"authors,omitempty"`
	LanguageInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"language_info"`
	KernelSpec struct {
		DisplayName string `json:"display_name"`
		Language    string `json:"language"`
	} `json:"kernelspec"`
}

// Notebook is a parsed .ipynb document.
type Notebook struct {
	Path          string   `json:"-"`
	NBFormat      int      `json:"nbformat"`
	NBFormatMinor int      `json:"nbformat_minor"`
	Metadata      Metadata `json:"metadata"`
	Cells         []Cell   `json:"cells"`
}

// Parse decodes a notebook document. Only nbformat 4 is supported.
func Parse(r io.Reader) (*Notebook, error) {
	var nb Notebook
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return nil, fmt.Errorf("unsupported nbformat %d (need 4+)", nb.NBFormat)
	}
	if nb.Cells == nil {
		return nil, fmt.Errorf("decode notebook: no cells")
	}
	return &nb, nil
}

// Load reads and parses a notebook from fs.
func Load(fs afero.Fs, path string) (*Notebook, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".ipynb" {
		return nil, fmt.Errorf("unsupported input %q: expected a .ipynb file", path)
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open notebook: %w", err)
	}
	defer f.Close()

	nb, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	nb.Path = path
	return nb, nil
}

// CodeCells returns code cells in order.
func (nb *Notebook) CodeCells() []Cell {
	return nb.cellsOf(CellCode)
}

// MarkdownCells returns markdown cells in order.
func (nb *Notebook) MarkdownCells() []Cell {
	return nb.cellsOf(CellMarkdown)
}

func (nb *Notebook) cellsOf(kind string) []Cell {
	var out []Cell
	for _, c := range nb.Cells {
		if c.CellType == kind {
			out = append(out, c)
		}
	}
	return out
}
