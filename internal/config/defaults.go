// Package config provides centralized configuration for ReportWing.
// All default values are defined here so viper, validation and the CLI share
// a single source of truth.
package config

import (
	"time"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (REPORTWING_LLM_PROVIDER).
const EnvPrefix = "REPORTWING"

// ConfigName is the config file base name searched in the working directory
// and the global config directory.
const ConfigName = "reportwing"

// Defaults
const (
	DefaultReportType     = "academic"
	DefaultCitationStyle  = "ieee"
	DefaultOutputFormat   = "markdown"
	DefaultOutputDir      = "reports"
	DefaultDiagramBackend = "auto"
	DefaultMMDCPath       = "mmdc"
	DefaultDiagramStyle   = "standard"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultLLMTimeout     = 120 * time.Second
)

// SetDefaults registers every default with viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", string(llm.DefaultProvider))
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.baseURL", "")
	v.SetDefault("llm.temperature", llm.DefaultTemperature)
	v.SetDefault("llm.maxTokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)

	v.SetDefault("pipeline.runTimeout", pipeline.DefaultRunTimeout)
	v.SetDefault("pipeline.maxConcurrency", pipeline.DefaultMaxConcurrency)

	v.SetDefault("report.type", DefaultReportType)
	v.SetDefault("report.citationStyle", DefaultCitationStyle)
	v.SetDefault("report.includeTOC", true)
	v.SetDefault("report.includeCodeSnippets", false)

	v.SetDefault("diagram.renderer", DefaultDiagramBackend)
	v.SetDefault("diagram.mmdcPath", DefaultMMDCPath)
	v.SetDefault("diagram.style", DefaultDiagramStyle)

	v.SetDefault("output.dir", DefaultOutputDir)
	v.SetDefault("output.format", DefaultOutputFormat)

	v.SetDefault("cache.enabled", true)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}
