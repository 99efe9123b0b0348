package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Repairs for the JSON mistakes models make most often. They cover flat
// objects well; deeply nested output may still fail to parse.
var (
	// "a": "x"\n"b": 1  ->  "a": "x",\n"b": 1
	missingCommaRegex = regexp.MustCompile(`("|\d|true|false|null|[}\]])\s*\n\s*("[\w][^"]*"\s*:)`)
	// [1, 2,] / {"a": 1,}
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
	// {'key': ...}
	singleQuoteKeyRegex = regexp.MustCompile(`([{,]\s*)'(\w+)'(\s*:)`)
	// : 'value'
	singleQuoteValueRegex = regexp.MustCompile(`(:\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]])`)
	// : High  ->  : "High"
	bareWordValueRegex = regexp.MustCompile(`(:\s*)([a-zA-Z][a-zA-Z0-9_-]*)(\s*[,}\]])`)
)

// ExtractAndParseJSON pulls the first JSON value out of a model response and
// decodes it into T. Code fences, leading prose and trailing text are
// ignored; common syntax slips are repaired before giving up.
func ExtractAndParseJSON[T any](response string) (T, error) {
	var result T

	cleaned := StripCodeFence(response)
	if cleaned == "" {
		return result, fmt.Errorf("no JSON found in response")
	}

	idx := strings.IndexAny(cleaned, "{[")
	if idx == -1 {
		var quoted string
		if err := json.Unmarshal([]byte(cleaned), &quoted); err == nil && quoted != cleaned {
			return ExtractAndParseJSON[T](quoted)
		}
		return result, fmt.Errorf("no JSON start ({ or [) found")
	}
	body := cleaned[idx:]

	firstErr := decodeFirst(body, &result)
	if firstErr == nil {
		return result, nil
	}
	for _, candidate := range []string{repairJSON(body), repairJSON(unescapeJSON(body))} {
		var retry T
		if decodeFirst(candidate, &retry) == nil {
			return retry, nil
		}
	}
	return result, fmt.Errorf("parse JSON: %w", firstErr)
}

// decodeFirst decodes one JSON value and ignores whatever follows it.
func decodeFirst(s string, v any) error {
	return json.NewDecoder(strings.NewReader(s)).Decode(v)
}

func unescapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.ReplaceAll(s, `\n`, "\n")
}

func repairJSON(input string) string {
	out := escapeControlChars(input)
	out = missingCommaRegex.ReplaceAllString(out, `$1, $2`)
	out = trailingCommaRegex.ReplaceAllString(out, `$1`)
	out = singleQuoteKeyRegex.ReplaceAllString(out, `$1"$2"$3`)
	out = singleQuoteValueRegex.ReplaceAllStringFunc(out, func(m string) string {
		parts := singleQuoteValueRegex.FindStringSubmatch(m)
		if len(parts) != 4 {
			return m
		}
		v := strings.ReplaceAll(parts[2], `\'`, `'`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		return parts[1] + `"` + v + `"` + parts[3]
	})
	out = bareWordValueRegex.ReplaceAllStringFunc(out, func(m string) string {
		parts := bareWordValueRegex.FindStringSubmatch(m)
		if len(parts) != 4 {
			return m
		}
		switch parts[2] {
		case "true", "false", "null":
			return m
		}
		return parts[1] + `"` + parts[2] + `"` + parts[3]
	})
	return closeTruncated(out)
}

// escapeControlChars escapes raw control characters that appear inside
// JSON strings.
func escapeControlChars(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	inString, escaped := false, false
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				sb.WriteString(`\n`)
			case '\t':
				sb.WriteString(`\t`)
			case '\r':
				sb.WriteString(`\r`)
			default:
				fmt.Fprintf(&sb, `\u%04x`, c)
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// closeTruncated balances quotes, brackets and braces of output that was
// cut off mid-value.
func closeTruncated(input string) string {
	quotes, escaped := 0, false
	for _, c := range input {
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			quotes++
		}
	}
	if quotes%2 != 0 {
		input += `"`
	}
	input += strings.Repeat("]", max(0, strings.Count(input, "[")-strings.Count(input, "]")))
	input += strings.Repeat("}", max(0, strings.Count(input, "{")-strings.Count(input, "}")))
	return input
}
