package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/report"
	"go.uber.org/zap"
)

// Defaults for Config fields left at zero.
const (
	DefaultCallTimeout    = 120 * time.Second
	DefaultRunTimeout     = 15 * time.Minute
	DefaultMaxConcurrency = 3
)

// Config is fixed at construction and never mutated by a run.
type Config struct {
	Template report.Template
	// SeedKeys are the facts every seeded Context is guaranteed to carry.
	SeedKeys       []string
	Gateway        llm.Gateway
	CallTimeout    time.Duration
	RunTimeout     time.Duration
	MaxConcurrency int
	// Cache backs use-last-good-context. Nil disables reuse.
	Cache   Cache
	Logger  *zap.Logger
	Metrics *Metrics
	// OnStage observes every stage trace as it is emitted.
	OnStage func(StageTrace)
	// OnPrompt observes every prompt before it is sent.
	OnPrompt func(string)
}

// Pipeline is a validated, ready-to-run stage sequence.
type Pipeline struct {
	cfg    Config
	stages []Stage
	descs  []Descriptor
	log    *zap.Logger
}

// New validates the stage sequence against the template and seed keys.
// Every problem is reported as a *ConfigError before any Gateway call.
func New(cfg Config, stages ...Stage) (*Pipeline, error) {
	if cfg.Gateway == nil {
		return nil, &ConfigError{Reason: "no gateway configured"}
	}
	if len(cfg.Template.Sections) == 0 {
		return nil, &ConfigError{Reason: "template has no sections"}
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	descs := make([]Descriptor, len(stages))
	for i, s := range stages {
		descs[i] = s.Descriptor()
	}
	if err := validate(cfg, descs); err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:    cfg,
		stages: slices.Clone(stages),
		descs:  descs,
		log:    cfg.Logger.Named("pipeline"),
	}, nil
}

// Descriptors returns the stage descriptors in execution order.
func (p *Pipeline) Descriptors() []Descriptor {
	return slices.Clone(p.descs)
}

// Template returns the template the pipeline fills.
func (p *Pipeline) Template() report.Template {
	return p.cfg.Template
}

func validate(cfg Config, descs []Descriptor) error {
	known := make(map[string]string) // fact -> producer
	for _, k := range cfg.SeedKeys {
		known[k] = report.SeedProducer
	}
	names := make(map[string]bool)
	producers := make(map[string]string) // section -> stage

	for _, d := range descs {
		if d.Name == "" {
			return &ConfigError{Reason: "stage with empty name"}
		}
		if names[d.Name] {
			return &ConfigError{Stage: d.Name, Reason: "duplicate stage name"}
		}
		if d.MaxAttempts < 1 {
			return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("max_attempts must be at least 1, got %d", d.MaxAttempts)}
		}
		if !d.Fallback.Valid() {
			return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("undefined fallback policy %q", d.Fallback)}
		}
		for _, f := range d.RequiredFacts {
			if _, ok := known[f]; !ok {
				return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("required fact %q is not provided by the input or any earlier stage", f)}
			}
		}
		for _, f := range d.AppendsFacts {
			if _, ok := known[f]; !ok {
				return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("appends to fact %q which nothing earlier provides", f)}
			}
		}
		for _, r := range d.References {
			if !names[r] {
				return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("references stage %q which does not run earlier", r)}
			}
		}
		for _, s := range d.Produces {
			if !cfg.Template.Has(s) {
				return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("produces section %q which is not in the %s template", s, cfg.Template.Type)}
			}
			if other, ok := producers[s]; ok {
				return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("section %q is already produced by %q", s, other)}
			}
			producers[s] = d.Name
		}
		for _, f := range d.ProvidesFacts {
			if other, ok := known[f]; ok {
				return &ConfigError{Stage: d.Name, Reason: fmt.Sprintf("fact %q is already provided by %q", f, other)}
			}
		}
		for _, f := range d.ProvidesFacts {
			known[f] = d.Name
		}
		names[d.Name] = true
	}

	for _, s := range cfg.Template.Sections {
		if _, ok := producers[s.Name]; !ok {
			return &ConfigError{Reason: fmt.Sprintf("section %q has no producing stage", s.Name)}
		}
	}
	return nil
}
