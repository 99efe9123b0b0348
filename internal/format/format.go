// Package format renders a finished report.Document to Markdown, JSON,
// YAML or PDF and writes the result to disk.
package format

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/utils"
	"github.com/spf13/afero"
)

// Format names an output format.
type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
	YAML     Format = "yaml"
	PDF      Format = "pdf"
	// All writes every text format. PDF needs Chrome and is opt-in.
	All Format = "all"
)

// ParseFormat accepts a format name or a common alias ("md", "yml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "pdf":
		return PDF, nil
	case "all":
		return All, nil
	}
	return "", fmt.Errorf("unsupported format: %q (supported: markdown, json, yaml, pdf, all)", s)
}

// Expand resolves All into the concrete formats.
func (f Format) Expand() []Format {
	if f == All {
		return []Format{Markdown, JSON, YAML}
	}
	return []Format{f}
}

// Options affect how a document is rendered.
type Options struct {
	IncludeTOC  bool
	Author      string
	Institution string
	// GeneratedAt stamps the output; zero means now.
	GeneratedAt time.Time
	// AssetDir is the directory the output file lives in. Diagram artifact
	// links are made relative to it.
	AssetDir string
	// Trace, when set, is embedded in structured outputs.
	Trace *pipeline.Trace
	// BibTeX, when set, is embedded in structured outputs.
	BibTeX string
	// Printer prints PDF output; nil uses headless Chrome.
	Printer Printer
}

func (o Options) generatedAt() time.Time {
	if o.GeneratedAt.IsZero() {
		return time.Now()
	}
	return o.GeneratedAt
}

// Formatter renders a document in one format.
type Formatter interface {
	Extension() string
	Render(doc *report.Document, opts Options) ([]byte, error)
}

// New returns the formatter for a concrete format.
func New(f Format, opts Options) (Formatter, error) {
	switch f {
	case Markdown:
		return MarkdownFormatter{}, nil
	case JSON:
		return JSONFormatter{Indent: "  "}, nil
	case YAML:
		return YAMLFormatter{}, nil
	case PDF:
		return PDFFormatter{Printer: opts.Printer}, nil
	}
	return nil, fmt.Errorf("no formatter for %q", f)
}

// FileName is the output stem for a document: its slugged title, or
// "report" when the title has no usable characters.
func FileName(doc *report.Document) string {
	if s := utils.Slug(doc.Title); s != "" {
		return s
	}
	return "report"
}

// Writer writes rendered documents into a directory.
type Writer struct {
	Fs  afero.Fs
	Dir string
}

// NewWriter creates a Writer for dir.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{Fs: fs, Dir: dir}
}

// Write renders doc in every format f expands to and returns the paths
// written. An empty name derives the file name from the title.
func (w *Writer) Write(doc *report.Document, f Format, name string, opts Options) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document to write")
	}
	if name == "" {
		name = FileName(doc)
	}
	if err := w.Fs.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if opts.AssetDir == "" {
		opts.AssetDir = w.Dir
	}

	var paths []string
	for _, concrete := range f.Expand() {
		fm, err := New(concrete, opts)
		if err != nil {
			return paths, err
		}
		data, err := fm.Render(doc, opts)
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", concrete, err)
		}
		path := filepath.Join(w.Dir, name+"."+fm.Extension())
		if err := afero.WriteFile(w.Fs, path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
