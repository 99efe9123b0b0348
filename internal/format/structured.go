package format

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"gopkg.in/yaml.v3"
)

// envelope is the structured output: the document plus run metadata.
type envelope struct {
	report.Document `yaml:",inline"`
	Author          string          `json:"author,omitempty" yaml:"author,omitempty"`
	Institution     string          `json:"institution,omitempty" yaml:"institution,omitempty"`
	GeneratedAt     time.Time       `json:"generated_at" yaml:"generated_at"`
	Trace           *pipeline.Trace `json:"trace,omitempty" yaml:"trace,omitempty"`
	BibTeX          string          `json:"bibtex,omitempty" yaml:"bibtex,omitempty"`
}

func newEnvelope(doc *report.Document, opts Options) envelope {
	return envelope{
		Document:    *doc,
		Author:      opts.Author,
		Institution: opts.Institution,
		GeneratedAt: opts.generatedAt().UTC(),
		Trace:       opts.Trace,
		BibTeX:      opts.BibTeX,
	}
}

// JSONFormatter renders the document as JSON.
type JSONFormatter struct {
	Indent string
}

func (JSONFormatter) Extension() string { return "json" }

func (f JSONFormatter) Render(doc *report.Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent != "" {
		enc.SetIndent("", f.Indent)
	}
	if err := enc.Encode(newEnvelope(doc, opts)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAMLFormatter renders the document as YAML.
type YAMLFormatter struct{}

func (YAMLFormatter) Extension() string { return "yaml" }

func (YAMLFormatter) Render(doc *report.Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(newEnvelope(doc, opts)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
