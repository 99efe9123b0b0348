package utils

import (
	"regexp"
	"strings"
)

var (
	fenceOpenRegex    = regexp.MustCompile("^```[a-zA-Z0-9_-]*\\s*\n?")
	markdownHeadRegex = regexp.MustCompile(`^#{1,6}\s+`)
	boldHeadRegex     = regexp.MustCompile(`^\*\*[^*]+\*\*:?$`)
	blankLinesRegex   = regexp.MustCompile(`\n\s*\n`)
)

// Truncate returns a truncated string with "..." if it exceeds maxLen.
// Counts runes, not bytes.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpenRegex.ReplaceAllString(s, "")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// StripLeadingHeadings drops heading lines a model tends to prepend to
// section prose ("# Introduction", "**Introduction**").
func StripLeadingHeadings(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	i := 0
	for i < len(lines) {
		l := strings.TrimSpace(lines[i])
		if l == "" || markdownHeadRegex.MatchString(l) || boldHeadRegex.MatchString(l) {
			i++
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(lines[i:], "\n"))
}

// Paragraphs splits text on blank lines, dropping empty paragraphs and
// inner heading lines.
func Paragraphs(s string) []string {
	var out []string
	for _, p := range blankLinesRegex.Split(strings.TrimSpace(s), -1) {
		p = strings.TrimSpace(p)
		if p == "" || markdownHeadRegex.MatchString(p) && !strings.Contains(p, "\n") {
			continue
		}
		out = append(out, strings.Join(strings.Fields(p), " "))
	}
	return out
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Slug makes a lowercase, dash-separated file name stem.
func Slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.Trim(sb.String(), "-")
}
