package format

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/josephgoksu/ReportWing/internal/report"
)

// MarkdownFormatter renders GitHub-flavoured Markdown.
type MarkdownFormatter struct{}

func (MarkdownFormatter) Extension() string { return "md" }

func (MarkdownFormatter) Render(doc *report.Document, opts Options) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	if doc.Subtitle != "" {
		fmt.Fprintf(&sb, "**%s**\n\n", doc.Subtitle)
	}
	if byline := joinNonEmpty(" · ", opts.Author, opts.Institution); byline != "" {
		fmt.Fprintf(&sb, "%s\n\n", byline)
	}
	fmt.Fprintf(&sb, "*Generated by ReportWing on %s*\n\n---\n\n", opts.generatedAt().Format("January 2, 2006"))

	if opts.IncludeTOC && len(doc.Sections) > 0 {
		sb.WriteString("## Table of Contents\n\n")
		for i, s := range doc.Sections {
			fmt.Fprintf(&sb, "%d. [%s](#%s)\n", i+1, s.Title, anchor(s.Title))
		}
		sb.WriteString("\n---\n\n")
	}

	for i, s := range doc.Sections {
		if i > 0 {
			sb.WriteString("---\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n", s.Title)
		if s.Degraded {
			fmt.Fprintf(&sb, "<!-- %s: generated from fallback content -->\n\n", s.Name)
		}
		for _, b := range s.Body.Blocks {
			writeBlock(&sb, b, opts.AssetDir)
		}
	}
	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

func writeBlock(sb *strings.Builder, b report.Block, assetDir string) {
	switch b.Kind {
	case report.BlockHeading:
		level := min(max(b.Level, 3), 6)
		fmt.Fprintf(sb, "%s %s\n\n", strings.Repeat("#", level), b.Text)
	case report.BlockList:
		if len(b.Items) == 0 {
			return
		}
		for i, it := range b.Items {
			if b.Ordered {
				fmt.Fprintf(sb, "%d. %s\n", i+1, it)
			} else {
				fmt.Fprintf(sb, "- %s\n", it)
			}
		}
		sb.WriteString("\n")
	case report.BlockTable:
		if b.Table != nil && len(b.Table.Columns) > 0 {
			writeTable(sb, *b.Table)
		}
	case report.BlockDiagram:
		if b.Diagram == nil {
			return
		}
		if b.Diagram.Artifact != "" {
			fmt.Fprintf(sb, "![%s](%s)\n\n", b.Diagram.Title, link(assetDir, b.Diagram.Artifact))
		}
		if b.Diagram.Source != "" {
			fmt.Fprintf(sb, "```mermaid\n%s\n```\n\n", strings.TrimSpace(b.Diagram.Source))
		}
	case report.BlockCode:
		fmt.Fprintf(sb, "```%s\n%s\n```\n\n", b.Language, strings.TrimRight(b.Text, "\n"))
	default:
		if t := strings.TrimSpace(b.Text); t != "" {
			sb.WriteString(t)
			sb.WriteString("\n\n")
		}
	}
}

func writeTable(sb *strings.Builder, t report.Table) {
	row := func(cells []string) {
		sb.WriteString("|")
		for i := range t.Columns {
			cell := ""
			if i < len(cells) {
				cell = strings.ReplaceAll(cells[i], "|", `\|`)
			}
			fmt.Fprintf(sb, " %s |", cell)
		}
		sb.WriteString("\n")
	}
	row(t.Columns)
	sb.WriteString("|")
	for range t.Columns {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, r := range t.Rows {
		row(r)
	}
	sb.WriteString("\n")
}

// anchor mirrors GitHub's heading anchors: lowercase, spaces to dashes,
// punctuation dropped.
func anchor(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// link makes an artifact path relative to the document's directory.
func link(base, path string) string {
	if base == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
