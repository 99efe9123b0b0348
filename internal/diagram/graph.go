// Package diagram models report diagrams as node/edge graphs, converts them
// to and from Mermaid, and renders them to image artifacts.
package diagram

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Node is a graph vertex.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Graph is a parsed flowchart.
type Graph struct {
	Direction string `json:"direction" yaml:"direction"`
	Nodes     []Node `json:"nodes" yaml:"nodes"`
	Edges     []Edge `json:"edges" yaml:"edges"`
}

// ErrInvalidMermaid is returned for text that is not a usable flowchart.
var ErrInvalidMermaid = errors.New("invalid mermaid flowchart")

var (
	headerRegex = regexp.MustCompile(`^(graph|flowchart)(\s+(TD|TB|BT|LR|RL))?\s*;?$`)
	// A node reference with an optional shape: A, A[Label], A(Label), A{Label}, A((Label)), A([Label]), A[[Label]], A>Label]
	nodeRegex = regexp.MustCompile(`^([A-Za-z0-9_]+)\s*(\(\(.*?\)\)|\(\[.*?\]\)|\[\[.*?\]\]|\[.*?\]|\(.*?\)|\{.*?\}|>.*?\])?`)
	// An edge operator with an optional |label|.
	linkRegex = regexp.MustCompile(`^\s*(-->|---|-\.->|==>|-\.-|--o|--x)\s*(\|([^|]*)\|)?\s*`)
	// Inline edge label form: A -- text --> B
	inlineLabelRegex = regexp.MustCompile(`^\s*--\s+([^->][^-]*?)\s+-->\s*`)
)

var ignoredPrefixes = []string{"%%", "classDef", "class ", "style ", "linkStyle", "click ", "subgraph", "direction "}

// ParseMermaid parses a Mermaid flowchart. A usable diagram has at least two
// nodes and one edge.
func ParseMermaid(src string) (Graph, error) {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	g := Graph{}
	b := newBuilder(&g)
	headerSeen := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if !headerSeen {
			m := headerRegex.FindStringSubmatch(line)
			if m == nil {
				return Graph{}, fmt.Errorf("%w: line %d: expected graph or flowchart header, got %q", ErrInvalidMermaid, i+1, line)
			}
			g.Direction = m[3]
			if g.Direction == "" {
				g.Direction = "TD"
			}
			headerSeen = true
			continue
		}
		if ignored(line) {
			continue
		}
		for _, stmt := range strings.Split(line, ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				if err := b.statement(stmt); err != nil {
					return Graph{}, fmt.Errorf("%w: line %d: %v", ErrInvalidMermaid, i+1, err)
				}
			}
		}
	}

	if !headerSeen {
		return Graph{}, fmt.Errorf("%w: empty diagram", ErrInvalidMermaid)
	}
	if len(g.Nodes) < 2 || len(g.Edges) < 1 {
		return Graph{}, fmt.Errorf("%w: need at least 2 nodes and 1 edge, got %d nodes and %d edges", ErrInvalidMermaid, len(g.Nodes), len(g.Edges))
	}
	return g, nil
}

func ignored(line string) bool {
	if line == "end" {
		return true
	}
	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

type builder struct {
	g     *Graph
	index map[string]int
}

func newBuilder(g *Graph) *builder {
	return &builder{g: g, index: make(map[string]int)}
}

// statement consumes "A[x] --> B --> C" style chains.
func (b *builder) statement(stmt string) error {
	rest := stmt
	from, rest, err := b.node(rest)
	if err != nil {
		return err
	}
	for strings.TrimSpace(rest) != "" {
		label := ""
		if m := inlineLabelRegex.FindStringSubmatch(rest); m != nil {
			label = strings.TrimSpace(m[1])
			rest = rest[len(m[0]):]
		} else if m := linkRegex.FindStringSubmatch(rest); m != nil {
			label = strings.TrimSpace(m[3])
			rest = rest[len(m[0]):]
		} else {
			return fmt.Errorf("unexpected %q", strings.TrimSpace(rest))
		}
		var to string
		to, rest, err = b.node(rest)
		if err != nil {
			return err
		}
		b.g.Edges = append(b.g.Edges, Edge{From: from, To: to, Label: unquote(label)})
		from = to
	}
	return nil
}

func (b *builder) node(s string) (id, rest string, err error) {
	s = strings.TrimLeft(s, " \t")
	m := nodeRegex.FindStringSubmatchIndex(s)
	if m == nil {
		return "", s, fmt.Errorf("expected node at %q", s)
	}
	id = s[m[2]:m[3]]
	label := ""
	if m[4] >= 0 {
		label = stripShape(s[m[4]:m[5]])
	}
	b.add(id, label)
	return id, s[m[1]:], nil
}

func (b *builder) add(id, label string) {
	if i, ok := b.index[id]; ok {
		if label != "" && b.g.Nodes[i].Label == id {
			b.g.Nodes[i].Label = label
		}
		return
	}
	if label == "" {
		label = id
	}
	b.index[id] = len(b.g.Nodes)
	b.g.Nodes = append(b.g.Nodes, Node{ID: id, Label: label})
}

func stripShape(s string) string {
	for _, pair := range [][2]string{{"((", "))"}, {"([", "])"}, {"[[", "]]"}, {"[(", ")]"}, {"[", "]"}, {"(", ")"}, {"{", "}"}, {">", "]"}} {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return unquote(strings.TrimSpace(s[len(pair[0]) : len(s)-len(pair[1])]))
		}
	}
	return unquote(s)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Mermaid renders the graph back to Mermaid flowchart text.
func (g Graph) Mermaid() string {
	var sb strings.Builder
	dir := g.Direction
	if dir == "" {
		dir = "TD"
	}
	fmt.Fprintf(&sb, "graph %s\n", dir)
	for _, n := range g.Nodes {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", n.ID, strings.ReplaceAll(n.Label, `"`, "'"))
	}
	for _, e := range g.Edges {
		if e.Label != "" {
			fmt.Fprintf(&sb, "    %s -->|%s| %s\n", e.From, e.Label, e.To)
		} else {
			fmt.Fprintf(&sb, "    %s --> %s\n", e.From, e.To)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Label returns the label of a node id, or the id itself.
func (g Graph) Label(id string) string {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n.Label
		}
	}
	return id
}

// NodeList lists node labels in declaration order.
func (g Graph) NodeList() []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.Label
	}
	return out
}

// EdgeList describes every edge as "From -> To (label)".
func (g Graph) EdgeList() []string {
	out := make([]string, len(g.Edges))
	for i, e := range g.Edges {
		s := g.Label(e.From) + " -> " + g.Label(e.To)
		if e.Label != "" {
			s += " (" + e.Label + ")"
		}
		out[i] = s
	}
	return out
}

// Normalize cleans model output into something ParseMermaid accepts: it
// strips fences and prose and prepends a header when the model omitted it.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "mermaid")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if headerRegex.MatchString(strings.TrimSpace(l)) {
			return strings.Join(lines[i:], "\n")
		}
	}
	return "graph TD\n" + s
}
