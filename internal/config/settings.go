package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/josephgoksu/ReportWing/internal/citation"
	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/stages"
	"github.com/spf13/viper"
)

// Settings is the fully resolved configuration for one invocation.
type Settings struct {
	LLM      LLMSettings      `mapstructure:"llm" json:"llm" yaml:"llm"`
	Pipeline PipelineSettings `mapstructure:"pipeline" json:"pipeline" yaml:"pipeline"`
	Report   ReportSettings   `mapstructure:"report" json:"report" yaml:"report"`
	Diagram  DiagramSettings  `mapstructure:"diagram" json:"diagram" yaml:"diagram"`
	Prompts  PromptSettings   `mapstructure:"prompts" json:"prompts" yaml:"prompts"`
	Output   OutputSettings   `mapstructure:"output" json:"output" yaml:"output"`
	Cache    CacheSettings    `mapstructure:"cache" json:"cache" yaml:"cache"`
	Log      LogSettings      `mapstructure:"log" json:"log" yaml:"log"`

	// Resolved from LLM plus API keys; never printed.
	Client llm.Config `mapstructure:"-" json:"-" yaml:"-" validate:"-"`
}

type LLMSettings struct {
	Provider    string        `mapstructure:"provider" json:"provider" yaml:"provider" validate:"required,oneof=openai ollama anthropic gemini offline"`
	Model       string        `mapstructure:"model" json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL     string        `mapstructure:"baseURL" json:"baseURL,omitempty" yaml:"baseURL,omitempty" validate:"omitempty,url"`
	Temperature float32       `mapstructure:"temperature" json:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"maxTokens" json:"maxTokens" yaml:"maxTokens" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gte=0"`
}

type PipelineSettings struct {
	RunTimeout     time.Duration            `mapstructure:"runTimeout" json:"runTimeout" yaml:"runTimeout" validate:"gte=0"`
	MaxConcurrency int                      `mapstructure:"maxConcurrency" json:"maxConcurrency" yaml:"maxConcurrency" validate:"gte=1,lte=16"`
	Stages         map[string]StageSettings `mapstructure:"stages" json:"stages,omitempty" yaml:"stages,omitempty" validate:"dive"`
}

// StageSettings override one stage's retry bound or fallback policy.
type StageSettings struct {
	MaxAttempts int    `mapstructure:"maxAttempts" json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty" validate:"gte=0,lte=10"`
	Fallback    string `mapstructure:"fallback" json:"fallback,omitempty" yaml:"fallback,omitempty" validate:"omitempty,oneof=skip-section use-placeholder-text use-last-good-context"`
}

type ReportSettings struct {
	Type          string `mapstructure:"type" json:"type" yaml:"type" validate:"required,oneof=academic internship industry research"`
	CitationStyle string `mapstructure:"citationStyle" json:"citationStyle" yaml:"citationStyle" validate:"oneof=ieee apa"`
	IncludeTOC    bool   `mapstructure:"includeTOC" json:"includeTOC" yaml:"includeTOC"`
	Title         string `mapstructure:"title" json:"title,omitempty" yaml:"title,omitempty"`
	Author        string `mapstructure:"author" json:"author,omitempty" yaml:"author,omitempty"`
	Institution   string `mapstructure:"institution" json:"institution,omitempty" yaml:"institution,omitempty"`
	// IncludeCodeSnippets adds code listings to methodology and implementation.
	IncludeCodeSnippets bool `mapstructure:"includeCodeSnippets" json:"includeCodeSnippets" yaml:"includeCodeSnippets"`
}

type DiagramSettings struct {
	Renderer string `mapstructure:"renderer" json:"renderer" yaml:"renderer" validate:"oneof=auto chromedp mmdc none"`
	Style    string `mapstructure:"style" json:"style" yaml:"style" validate:"oneof=minimal standard detailed"`
	MMDCPath string `mapstructure:"mmdcPath" json:"mmdcPath" yaml:"mmdcPath"`
}

type PromptSettings struct {
	Dir string `mapstructure:"dir" json:"dir,omitempty" yaml:"dir,omitempty"`
}

type OutputSettings struct {
	Dir    string `mapstructure:"dir" json:"dir" yaml:"dir" validate:"required"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"oneof=markdown json yaml pdf all"`
}

type CacheSettings struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" json:"dir" yaml:"dir"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"oneof=console json"`
}

var validate = validator.New()

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	s.LLM.Provider = strings.ToLower(s.LLM.Provider)
	s.Report.Type = strings.ToLower(s.Report.Type)
	s.Report.CitationStyle = strings.ToLower(s.Report.CitationStyle)
	s.Diagram.Style = strings.ToLower(s.Diagram.Style)
	s.Cache.Dir = GetCacheDir(v)

	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", describe(err))
	}

	client, err := LoadLLMConfig(v)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(&client); err != nil {
		return nil, fmt.Errorf("invalid llm client: %w", describe(err))
	}
	s.Client = client
	return &s, nil
}

// describe turns validator errors into "field: rule" lines keyed by the
// config path a user would edit.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Settings.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", path, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ReportType returns the configured template type.
func (s *Settings) ReportType() report.Type {
	return report.Type(s.Report.Type)
}

// CitationStyle returns the configured reference style.
func (s *Settings) CitationStyle() citation.Style {
	style, err := citation.ParseStyle(s.Report.CitationStyle)
	if err != nil {
		return citation.IEEE
	}
	return style
}

// DiagramStyle returns the configured diagram style.
func (s *Settings) DiagramStyle() diagram.Style {
	style, err := diagram.ParseStyle(s.Diagram.Style)
	if err != nil {
		return diagram.StyleStandard
	}
	return style
}

// StageOverrides converts per-stage settings for stages.Deps.
func (s *Settings) StageOverrides() map[string]stages.Override {
	if len(s.Pipeline.Stages) == 0 {
		return nil
	}
	out := make(map[string]stages.Override, len(s.Pipeline.Stages))
	for name, st := range s.Pipeline.Stages {
		out[strings.ToLower(name)] = stages.Override{
			MaxAttempts: st.MaxAttempts,
			Fallback:    pipeline.FallbackPolicy(st.Fallback),
		}
	}
	return out
}
