package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type extraction struct {
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
	Complexity string   `json:"complexity"`
}

func TestExtractAndParseJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  extraction
	}{
		{
			name:  "plain object",
			input: `{"title": "Churn Prediction", "objectives": ["compare models"]}`,
			want:  extraction{Title: "Churn Prediction", Objectives: []string{"compare models"}},
		},
		{
			name:  "fenced with prose",
			input: "Here you go:\n```json\n{\"title\": \"Churn\"}\n```\nHope this helps.",
			want:  extraction{Title: "Churn"},
		},
		{
			name:  "trailing text",
			input: `{"title": "Churn"} and some notes afterwards`,
			want:  extraction{Title: "Churn"},
		},
		{
			name:  "trailing comma",
			input: `{"title": "Churn", "objectives": ["a", "b",],}`,
			want:  extraction{Title: "Churn", Objectives: []string{"a", "b"}},
		},
		{
			name:  "single quotes",
			input: `{'title': 'Churn'}`,
			want:  extraction{Title: "Churn"},
		},
		{
			name:  "bare word value",
			input: `{"title": "Churn", "complexity": High}`,
			want:  extraction{Title: "Churn", Complexity: "High"},
		},
		{
			name:  "missing comma between keys",
			input: "{\"title\": \"Churn\"\n\"complexity\": \"Low\"}",
			want:  extraction{Title: "Churn", Complexity: "Low"},
		},
		{
			name:  "truncated output",
			input: `{"title": "Churn", "objectives": ["compare models`,
			want:  extraction{Title: "Churn", Objectives: []string{"compare models"}},
		},
		{
			name:  "raw newline in string",
			input: "{\"title\": \"Churn\nPrediction\"}",
			want:  extraction{Title: "Churn\nPrediction"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractAndParseJSON[extraction](tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAndParseJSON_Errors(t *testing.T) {
	_, err := ExtractAndParseJSON[extraction]("")
	assert.ErrorContains(t, err, "no JSON found")

	_, err = ExtractAndParseJSON[extraction]("I could not analyze this notebook.")
	assert.ErrorContains(t, err, "no JSON start")
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "graph TD\nA-->B", StripCodeFence("```mermaid\ngraph TD\nA-->B\n```"))
	assert.Equal(t, "Body text.", StripLeadingHeadings("# Introduction\n\n**Introduction**\nBody text."))
	assert.Equal(t, []string{"First para spans lines.", "Second."}, Paragraphs("## Heading\n\nFirst para\nspans lines.\n\n\nSecond."))
	assert.Equal(t, 3, WordCount(" a  b\nc "))
	assert.Equal(t, "customer-churn-analysis", Slug("Customer Churn: Analysis!"))
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "ab...", Truncate("abcdefgh", 5))
}
