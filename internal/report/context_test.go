package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_AddFactNeverOverwrites(t *testing.T) {
	c := NewContext("summary")
	require.NoError(t, c.AddFact(SeedProducer, FactDatasetRows, 30000))

	err := c.AddFact("analysis", FactDatasetRows, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFactExists))

	v := c.View(ViewSpec{Facts: []string{FactDatasetRows}})
	n, ok := v.Int(FactDatasetRows)
	require.True(t, ok)
	assert.Equal(t, 30000, n)
	assert.Equal(t, []string{SeedProducer}, c.Provenance(FactDatasetRows))
}

func TestContext_AppendTracksPerItemProducer(t *testing.T) {
	c := NewContext("")
	require.NoError(t, c.AppendFact("analysis", FactFigures, Figure{Title: "ROC curve", Source: "notebook"}))
	require.NoError(t, c.AppendFact("diagrams", FactFigures, Figure{Title: "Architecture", Source: "diagrams"}))

	assert.Equal(t, []string{"analysis", "diagrams"}, c.Provenance(FactFigures))

	v := c.View(ViewSpec{Facts: []string{FactFigures}})
	figs := v.Figures(FactFigures)
	require.Len(t, figs, 2)
	assert.Equal(t, "ROC curve", figs[0].Title)
	assert.Equal(t, "Architecture", figs[1].Title)
}

func TestContext_AppendToScalarFails(t *testing.T) {
	c := NewContext("")
	require.NoError(t, c.AddFact("analysis", FactProjectTitle, "Churn"))
	err := c.AppendFact("diagrams", FactProjectTitle, "x")
	assert.True(t, errors.Is(err, ErrNotSequence))
}

func TestContext_MergeIsAllOrNothing(t *testing.T) {
	c := NewContext("")
	require.NoError(t, c.AddFact(SeedProducer, FactNotebookTitle, "nb"))

	tests := []struct {
		name     string
		declared []string
		writes   []FactWrite
		wantErr  error
	}{
		{
			name:     "undeclared key",
			declared: []string{FactProjectTitle},
			writes:   []FactWrite{Set(FactProjectTitle, "t"), Set(FactBestModel, "SVC")},
			wantErr:  ErrUndeclaredFact,
		},
		{
			name:     "overwrite existing",
			declared: []string{FactProjectTitle, FactNotebookTitle},
			writes:   []FactWrite{Set(FactProjectTitle, "t"), Set(FactNotebookTitle, "other")},
			wantErr:  ErrFactExists,
		},
		{
			name:     "set after append of same key",
			declared: []string{FactObjectives},
			writes:   []FactWrite{AppendStrings(FactObjectives, "a"), Set(FactObjectives, "b")},
			wantErr:  ErrFactExists,
		},
		{
			name:     "append after set of same key",
			declared: []string{FactObjectives},
			writes:   []FactWrite{Set(FactObjectives, "b"), AppendStrings(FactObjectives, "a")},
			wantErr:  ErrNotSequence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Merge("analysis", tt.declared, tt.writes)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.False(t, c.Has(FactProjectTitle), "failed merge must not apply any write")
			assert.False(t, c.Has(FactObjectives))
		})
	}

	require.NoError(t, c.Merge("analysis", []string{FactProjectTitle, FactObjectives},
		[]FactWrite{Set(FactProjectTitle, "Churn"), AppendStrings(FactObjectives, "a", "b")}))
	v := c.View(ViewSpec{Facts: []string{FactProjectTitle, FactObjectives}})
	assert.Equal(t, "Churn", v.String(FactProjectTitle))
	assert.Equal(t, []string{"a", "b"}, v.Strings(FactObjectives))
}

func TestContext_ViewIsRestrictedAndIsolated(t *testing.T) {
	c := NewContext("nb summary")
	table := Table{Columns: []string{"Model", "Accuracy"}, Rows: [][]string{{"SVC", "0.9100"}}}
	require.NoError(t, c.AddFact("analysis", FactMetricsTable, table))
	require.NoError(t, c.AddFact("analysis", FactProjectTitle, "Churn"))
	require.NoError(t, c.SetStageOutput("results", []Section{{Name: "results", Body: Body{Blocks: []Block{Paragraph("ok")}}}}))

	v := c.View(ViewSpec{Facts: []string{FactMetricsTable}, Stages: []string{"results"}})
	assert.False(t, v.Has(FactProjectTitle))
	assert.Equal(t, "nb summary", v.SourceSummary())

	got, ok := v.Table(FactMetricsTable)
	require.True(t, ok)
	got.Rows[0][0] = "mutated"

	again, _ := c.View(ViewSpec{Facts: []string{FactMetricsTable}}).Table(FactMetricsTable)
	assert.Equal(t, "SVC", again.Rows[0][0])

	secs := v.Sections("results")
	require.Len(t, secs, 1)
	secs[0].Body.Blocks[0].Text = "changed"
	assert.Equal(t, "ok", v.Sections("results")[0].Body.Blocks[0].Text)
}

func TestContext_StageOutputWriteOnce(t *testing.T) {
	c := NewContext("")
	require.NoError(t, c.SetStageOutput("intro", nil))
	assert.True(t, errors.Is(c.SetStageOutput("intro", nil), ErrOutputExists))
}

func TestContext_Project(t *testing.T) {
	a := NewContext("Notebook \"Churn\": 12 cells.")
	b := NewContext("Notebook \"Housing\": 9 cells.")
	assert.NotEqual(t, a.Project(), b.Project())
	assert.Equal(t, a.Project(), NewContext("Notebook \"Churn\": 12 cells.").Project())

	a.SetProject("/work/churn.ipynb")
	assert.Equal(t, "/work/churn.ipynb", a.Project())
}
