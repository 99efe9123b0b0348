package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		typ   Type
		first string
		last  string
		count int
	}{
		{Academic, SectionAbstract, SectionReferences, 8},
		{Internship, SectionExecutiveSummary, SectionReferences, 8},
		{Industry, SectionExecutiveSummary, SectionReferences, 8},
		{Research, SectionAbstract, SectionReferences, 10},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			tmpl, err := TemplateFor(tt.typ)
			require.NoError(t, err)
			assert.Len(t, tmpl.Sections, tt.count)
			assert.Equal(t, tt.first, tmpl.Sections[0].Name)
			assert.Equal(t, tt.last, tmpl.Sections[len(tmpl.Sections)-1].Name)
			assert.True(t, tmpl.Has(SectionDiagrams))
		})
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" Research ")
	require.NoError(t, err)
	assert.Equal(t, Research, typ)

	_, err = ParseType("thesis")
	assert.Error(t, err)
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "Executive Summary", SectionTitle(SectionExecutiveSummary))
	assert.Equal(t, "Data Preparation", SectionTitle("data_preparation"))
}

func TestBody_IsEmpty(t *testing.T) {
	assert.True(t, Body{}.IsEmpty())
	assert.True(t, Body{Blocks: []Block{Paragraph("  ")}}.IsEmpty())
	assert.False(t, Body{Blocks: []Block{List(false, "a")}}.IsEmpty())
	assert.False(t, Body{Blocks: []Block{TableBlock(Table{Columns: []string{"A"}})}}.IsEmpty())
}
