package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephgoksu/ReportWing/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RegeneratesOnChange(t *testing.T) {
	dir := t.TempDir()
	nbPath := filepath.Join(dir, "credit.ipynb")
	require.NoError(t, os.WriteFile(nbPath, []byte(notebookJSON), 0o644))

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	settings := testSettings()
	settings.Output.Dir = filepath.Join(dir, "out")
	actx, err := NewContext(settings, WithFs(afero.NewOsFs()), WithStore(st))
	require.NoError(t, err)
	defer actx.Close()
	a := NewReportApp(actx)

	results := make(chan *GenerateResult, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, GenerateRequest{Notebook: nbPath, Offline: true, NoWrite: true}, WatchOptions{
			Debounce: 50 * time.Millisecond,
			OnResult: func(res *GenerateResult, err error) {
				if err == nil {
					results <- res
				}
			},
		})
	}()

	waitResult := func() *GenerateResult {
		select {
		case res := <-results:
			return res
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for a generation")
			return nil
		}
	}

	first := waitResult()
	assert.Equal(t, "Credit Default Prediction", first.Document.Title)

	// Give the watcher a moment, then change the notebook's title cell.
	time.Sleep(100 * time.Millisecond)
	changed := strings.Replace(notebookJSON, "# Credit Default Prediction", "# Loan Default Prediction", 1)
	require.NoError(t, os.WriteFile(nbPath, []byte(changed), 0o644))

	second := waitResult()
	assert.Equal(t, "Loan Default Prediction", second.Document.Title)
	assert.NotEqual(t, first.RunID, second.RunID)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
