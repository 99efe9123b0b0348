// Package report holds the data model shared by every generation stage:
// the append-only context a run accumulates and the document it produces.
package report

import "strings"

// BlockKind identifies the shape of a body block.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockHeading   BlockKind = "heading"
	BlockList      BlockKind = "list"
	BlockTable     BlockKind = "table"
	BlockDiagram   BlockKind = "diagram"
	BlockCode      BlockKind = "code"
)

// Table is a simple header + rows grid.
type Table struct {
	Columns []string   `json:"columns" yaml:"columns"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = append([]string(nil), row...)
		}
	}
	return out
}

// CloneValue implements Cloner.
func (t Table) CloneValue() any { return t.Clone() }

// DiagramRef points at a diagram artifact. Source always carries the Mermaid
// text so the diagram can be rebuilt when the artifact is missing.
type DiagramRef struct {
	Kind     string `json:"kind" yaml:"kind"`
	Title    string `json:"title" yaml:"title"`
	Source   string `json:"source" yaml:"source"`
	Artifact string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Format   string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Block is one unit of structured section content.
type Block struct {
	Kind     BlockKind   `json:"kind" yaml:"kind"`
	Text     string      `json:"text,omitempty" yaml:"text,omitempty"`
	Level    int         `json:"level,omitempty" yaml:"level,omitempty"`
	Items    []string    `json:"items,omitempty" yaml:"items,omitempty"`
	Ordered  bool        `json:"ordered,omitempty" yaml:"ordered,omitempty"`
	Table    *Table      `json:"table,omitempty" yaml:"table,omitempty"`
	Diagram  *DiagramRef `json:"diagram,omitempty" yaml:"diagram,omitempty"`
	Language string      `json:"language,omitempty" yaml:"language,omitempty"`
}

// Paragraph builds a paragraph block.
func Paragraph(text string) Block { return Block{Kind: BlockParagraph, Text: text} }

// Heading builds a sub-heading block.
func Heading(level int, text string) Block { return Block{Kind: BlockHeading, Level: level, Text: text} }

// List builds a bullet (or numbered) list block.
func List(ordered bool, items ...string) Block {
	return Block{Kind: BlockList, Ordered: ordered, Items: append([]string(nil), items...)}
}

// TableBlock wraps a table.
func TableBlock(t Table) Block {
	c := t.Clone()
	return Block{Kind: BlockTable, Table: &c}
}

// DiagramBlock wraps a diagram reference.
func DiagramBlock(d DiagramRef) Block {
	c := d
	return Block{Kind: BlockDiagram, Diagram: &c}
}

// Code builds a fenced code block.
func Code(language, text string) Block { return Block{Kind: BlockCode, Language: language, Text: text} }

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	out.Items = append([]string(nil), b.Items...)
	if b.Table != nil {
		t := b.Table.Clone()
		out.Table = &t
	}
	if b.Diagram != nil {
		d := *b.Diagram
		out.Diagram = &d
	}
	return out
}

// Body is the structured content of a section.
type Body struct {
	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Clone returns a deep copy of the body.
func (b Body) Clone() Body {
	if b.Blocks == nil {
		return Body{}
	}
	out := Body{Blocks: make([]Block, len(b.Blocks))}
	for i, blk := range b.Blocks {
		out.Blocks[i] = blk.Clone()
	}
	return out
}

// IsEmpty reports whether the body carries no visible content.
func (b Body) IsEmpty() bool {
	for _, blk := range b.Blocks {
		switch blk.Kind {
		case BlockList:
			if len(blk.Items) > 0 {
				return false
			}
		case BlockTable:
			if blk.Table != nil && len(blk.Table.Columns) > 0 {
				return false
			}
		case BlockDiagram:
			if blk.Diagram != nil {
				return false
			}
		default:
			if strings.TrimSpace(blk.Text) != "" {
				return false
			}
		}
	}
	return true
}

// PlainText flattens the body to text, one block per line.
func (b Body) PlainText() string {
	var sb strings.Builder
	for _, blk := range b.Blocks {
		switch blk.Kind {
		case BlockList:
			for _, it := range blk.Items {
				sb.WriteString(it)
				sb.WriteString("\n")
			}
		case BlockTable:
			if blk.Table != nil {
				sb.WriteString(strings.Join(blk.Table.Columns, " | "))
				sb.WriteString("\n")
				for _, row := range blk.Table.Rows {
					sb.WriteString(strings.Join(row, " | "))
					sb.WriteString("\n")
				}
			}
		case BlockDiagram:
			if blk.Diagram != nil {
				sb.WriteString(blk.Diagram.Title)
				sb.WriteString("\n")
			}
		default:
			sb.WriteString(blk.Text)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// Section is one titled part of the final document.
type Section struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	Body        Body   `json:"body" yaml:"body"`
	OriginStage string `json:"origin_stage" yaml:"origin_stage"`
	Degraded    bool   `json:"degraded" yaml:"degraded"`
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	out.Body = s.Body.Clone()
	return out
}

// CloneSections deep-copies a slice of sections.
func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

// Document is the finished report. It is never mutated after a run returns it.
type Document struct {
	ReportType Type      `json:"report_type" yaml:"report_type"`
	Title      string    `json:"title" yaml:"title"`
	Subtitle   string    `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Sections   []Section `json:"sections" yaml:"sections"`
}

// Section looks up a section by name.
func (d *Document) Section(name string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Names returns section names in document order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		names[i] = s.Name
	}
	return names
}

// DegradedSections lists the names of sections produced by a fallback.
func (d *Document) DegradedSections() []string {
	var out []string
	for _, s := range d.Sections {
		if s.Degraded {
			out = append(out, s.Name)
		}
	}
	return out
}
