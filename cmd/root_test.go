package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/josephgoksu/ReportWing/internal/app"
	"github.com/josephgoksu/ReportWing/internal/config"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/stages"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNotebook = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {},
 "cells": [
  {"cell_type": "markdown", "source": "# Housing Prices\nPredict sale prices from listing data."},
  {"cell_type": "code", "execution_count": 1, "source": "import pandas as pd\ndf = pd.read_csv('houses.csv')", "outputs": []}
 ]
}`

// executeCommand runs rootCmd with fresh flag state and the given config
// overrides, returning everything written to stdout and stderr.
func executeCommand(t *testing.T, overrides map[string]any, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile, verbose, jsonOutput = "", false, false
	genType, genFormat, genOutput, genName, genTitle = "", "", "", "", ""
	genAuthor, genInstitution, genSupplementary, genDiagramStyle = "", "", "", ""
	genIncludeCode = false
	genOffline, genWatch, genPreview, genDryRun = false, false, false, false

	home := t.TempDir()
	orig := config.GetGlobalConfigDir
	config.GetGlobalConfigDir = func() (string, error) { return home, nil }
	t.Cleanup(func() {
		config.GetGlobalConfigDir = orig
		viper.Reset()
	})

	viper.Set("cache.enabled", false)
	for k, v := range overrides {
		viper.Set(k, v)
	}

	b := new(bytes.Buffer)
	rootCmd.SetOut(b)
	rootCmd.SetErr(b)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return b.String(), err
}

func TestRootCmd(t *testing.T) {
	out, err := executeCommand(t, nil, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "ReportWing turns a Jupyter notebook into a structured report.")
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "generate")
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "0.3.0", GetVersion())

	out, err := executeCommand(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "reportwing 0.3.0")
}

func TestTemplatesCmd_JSON(t *testing.T) {
	out, err := executeCommand(t, nil, "templates", "--json")
	require.NoError(t, err)

	var infos []app.TemplateInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, len(report.Types()))
	assert.Equal(t, report.Academic, infos[0].Type)
	assert.Equal(t, report.SectionReferences, infos[0].Sections[len(infos[0].Sections)-1])
}

func TestStagesCmd_JSON(t *testing.T) {
	out, err := executeCommand(t, nil, "stages", "--json")
	require.NoError(t, err)

	var infos []stages.StageInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.Contains(t, names, report.SectionReferences)
	assert.Contains(t, names, report.SectionDiagrams)
}

func TestGenerateCmd_Offline(t *testing.T) {
	dir := t.TempDir()
	nb := filepath.Join(dir, "houses.ipynb")
	require.NoError(t, os.WriteFile(nb, []byte(testNotebook), 0o644))
	outDir := filepath.Join(dir, "reports")

	out, err := executeCommand(t, map[string]any{"diagram.renderer": "none"},
		"generate", nb, "--offline", "--type", "industry", "--format", "all", "-o", outDir, "--name", "houses")
	require.NoError(t, err)
	assert.Contains(t, out, "Housing Prices")

	for _, ext := range []string{".md", ".json", ".yaml"} {
		_, err := os.Stat(filepath.Join(outDir, "houses"+ext))
		assert.NoError(t, err, "missing houses%s", ext)
	}
	md, err := os.ReadFile(filepath.Join(outDir, "houses.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Housing Prices")
}

func TestGenerateCmd_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notebooks", "archive"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notebooks", "houses.ipynb"), []byte(testNotebook), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notebooks", "archive", "rentals.ipynb"), []byte(testNotebook), 0o644))
	outDir := filepath.Join(dir, "reports")

	_, err := executeCommand(t, map[string]any{"diagram.renderer": "none"},
		"generate", filepath.Join(dir, "notebooks"), "--offline", "-o", outDir,
		"--diagram-style", "minimal", "--include-code-snippets")
	require.NoError(t, err)
	for _, name := range []string{"houses.md", "rentals.md"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
	md, err := os.ReadFile(filepath.Join(outDir, "houses.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "### Code Listings")

	_, err = executeCommand(t, nil, "generate", filepath.Join(dir, "notebooks"), "--offline", "--name", "one")
	assert.ErrorContains(t, err, "single notebook")

	_, err = executeCommand(t, nil, "generate", filepath.Join(dir, "notebooks"), "--watch")
	assert.ErrorContains(t, err, "is a directory")
}

func TestGenerateCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	nb := filepath.Join(dir, "houses.ipynb")
	require.NoError(t, os.WriteFile(nb, []byte(testNotebook), 0o644))

	_, err := executeCommand(t, map[string]any{"llm.provider": "watson"}, "generate", nb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM.Provider")
}

func TestConfigGet(t *testing.T) {
	out, err := executeCommand(t, map[string]any{"report.type": "research"}, "config", "get", "report.type")
	require.NoError(t, err)
	assert.Equal(t, "research\n", out)

	_, err = executeCommand(t, nil, "config", "get", "no.such.key")
	assert.Error(t, err)
}

func TestFormatGenerateResult(t *testing.T) {
	res := &app.GenerateResult{
		RunID: "run-1",
		Document: &report.Document{
			ReportType: report.Industry,
			Title:      "Housing Prices",
			Sections:   []report.Section{{Name: report.SectionResults}, {Name: report.SectionReferences}},
		},
		Outputs:  []string{"reports/houses.md"},
		Degraded: []string{report.SectionResults},
		Markdown: "# Housing Prices\n",
	}

	got := formatGenerateResult(res, false)
	assert.Contains(t, got, "## Housing Prices")
	assert.Contains(t, got, "- Sections: 2")
	assert.Contains(t, got, "- Degraded: results")
	assert.Contains(t, got, "- reports/houses.md")
	assert.NotContains(t, got, "---")

	assert.Contains(t, formatGenerateResult(res, true), "---\n\n# Housing Prices\n")
}

func TestFormatTemplates(t *testing.T) {
	got := formatTemplates(app.Templates())
	assert.Contains(t, got, "## academic")
	assert.Contains(t, got, "- Stage order: ")
}

func TestPromptsCmd_Override(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conclusion.tmpl"), []byte("Close out {{.Title}}."), 0o644))

	out, err := executeCommand(t, map[string]any{"prompts.dir": dir}, "prompts", "--json")
	require.NoError(t, err)
	var rows []struct {
		Key    string `json:"key"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	sources := make(map[string]string, len(rows))
	for _, r := range rows {
		sources[r.Key] = r.Source
	}
	assert.Equal(t, "override", sources["conclusion"])
	assert.Equal(t, "built-in", sources["system"])

	out, err = executeCommand(t, map[string]any{"prompts.dir": dir}, "prompts", "show", "conclusion")
	require.NoError(t, err)
	assert.Equal(t, "Close out {{.Title}}.\n", out)
}

func TestOpenContext_Defaults(t *testing.T) {
	viper.Reset()
	cfgFile, verbose = "", false
	home := t.TempDir()
	orig := config.GetGlobalConfigDir
	config.GetGlobalConfigDir = func() (string, error) { return home, nil }
	t.Cleanup(func() {
		config.GetGlobalConfigDir = orig
		viper.Reset()
	})
	t.Setenv("XDG_CACHE_HOME", "")

	InitConfig()
	actx, err := openContext()
	require.NoError(t, err)
	t.Cleanup(func() { _ = actx.Close() })

	assert.Equal(t, "ollama", actx.Settings.LLM.Provider)
	assert.Equal(t, "ollama", string(actx.Settings.Client.Provider))
	assert.Equal(t, filepath.Join(home, "cache"), actx.Settings.Cache.Dir)
	assert.NotNil(t, actx.Store)

	viper.Set("llm.provider", "offline")
	offline, err := openContext()
	require.NoError(t, err)
	t.Cleanup(func() { _ = offline.Close() })
	assert.Equal(t, "offline", string(offline.Settings.Client.Provider))
}
