package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCrashContext(t *testing.T) {
	t.Helper()
	prev := globalContext
	globalContext = &crashContext{}
	t.Cleanup(func() { globalContext = prev })
}

func TestCrashContext(t *testing.T) {
	resetCrashContext(t)

	SetVersion("1.0.0-test")
	SetCommand("reportwing generate nb.ipynb")
	SetLastPrompt(strings.Repeat("a", 3000))

	entry := newCrashLog("boom")
	assert.Equal(t, "boom", entry.PanicValue)
	assert.Equal(t, "1.0.0-test", entry.Version)
	assert.Equal(t, "reportwing generate nb.ipynb", entry.Command)
	assert.True(t, strings.HasSuffix(entry.LastPrompt, "[truncated]"))
	assert.Less(t, len(entry.LastPrompt), 2100)
	assert.NotEmpty(t, entry.StackTrace)
}

func TestWriteCrashLog(t *testing.T) {
	resetCrashContext(t)
	base := t.TempDir()
	SetBasePath(base)

	entry := newCrashLog("nil map write")
	path, err := WriteCrashLog(entry)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, CrashLogDir), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded CrashLog
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "nil map write", decoded.PanicValue)
}

func TestWriteCrashLog_KeepsNewest(t *testing.T) {
	resetCrashContext(t)
	SetBasePath(t.TempDir())

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range MaxCrashLogs + 3 {
		_, err := WriteCrashLog(CrashLog{Timestamp: start.Add(time.Duration(i) * time.Second), PanicValue: "p"})
		require.NoError(t, err)
	}

	logs, err := ListCrashLogs()
	require.NoError(t, err)
	require.Len(t, logs, MaxCrashLogs)
	assert.Contains(t, logs[0], "crash_20250101_000003")
}

func TestListCrashLogs_MissingDir(t *testing.T) {
	resetCrashContext(t)
	SetBasePath(filepath.Join(t.TempDir(), "absent"))
	logs, err := ListCrashLogs()
	require.NoError(t, err)
	assert.Empty(t, logs)
}
