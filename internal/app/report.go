package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/josephgoksu/ReportWing/internal/citation"
	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/format"
	"github.com/josephgoksu/ReportWing/internal/logger"
	"github.com/josephgoksu/ReportWing/internal/notebook"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/internal/stages"
	"github.com/josephgoksu/ReportWing/internal/store"
	"github.com/josephgoksu/ReportWing/internal/utils"
	"github.com/josephgoksu/ReportWing/prompts"
	"go.uber.org/zap"
)

// GenerateRequest configures one report generation. Empty fields fall back
// to the loaded settings.
type GenerateRequest struct {
	Notebook      string
	ReportType    string
	Format        string
	OutputDir     string
	Name          string // output file stem; derived from the title when empty
	Title         string
	Author        string
	Institution   string
	Supplementary string
	// DiagramStyle is minimal, standard or detailed.
	DiagramStyle string
	// IncludeCode adds code listings to methodology and implementation.
	IncludeCode bool
	Offline     bool
	// NoWrite skips writing files; the document is still returned.
	NoWrite bool
	// OnStage observes each stage as it finishes.
	OnStage func(pipeline.StageTrace)
}

// GenerateResult is the outcome of a successful generation.
type GenerateResult struct {
	RunID    string           `json:"run_id"`
	Document *report.Document `json:"document"`
	Trace    *pipeline.Trace  `json:"trace"`
	Outputs  []string         `json:"outputs,omitempty"`
	Degraded []string         `json:"degraded,omitempty"`
	Markdown string           `json:"-"`
}

// ReportApp generates reports from notebooks.
type ReportApp struct {
	ctx *Context
	log *zap.Logger
}

// NewReportApp creates the report service.
func NewReportApp(ctx *Context) *ReportApp {
	return &ReportApp{ctx: ctx, log: ctx.Logger.Named("app")}
}

// Generate parses the notebook, runs the pipeline for the requested report
// type and writes the document in the requested formats.
func (a *ReportApp) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	s := a.ctx.Settings

	typ, err := report.ParseType(firstNonEmpty(req.ReportType, s.Report.Type))
	if err != nil {
		return nil, err
	}
	tmpl, err := report.TemplateFor(typ)
	if err != nil {
		return nil, err
	}
	outFormat, err := format.ParseFormat(firstNonEmpty(req.Format, s.Output.Format))
	if err != nil {
		return nil, err
	}
	outDir := firstNonEmpty(req.OutputDir, s.Output.Dir)
	diagramStyle, err := diagram.ParseStyle(firstNonEmpty(req.DiagramStyle, string(s.DiagramStyle())))
	if err != nil {
		return nil, err
	}

	nb, err := notebook.Load(a.ctx.Fs, req.Notebook)
	if err != nil {
		return nil, err
	}
	rc, err := notebook.Seed(nb, notebook.SeedOptions{
		Author:        firstNonEmpty(req.Author, s.Report.Author),
		Institution:   firstNonEmpty(req.Institution, s.Report.Institution),
		Supplementary: req.Supplementary,
		IncludeCode:   req.IncludeCode || s.Report.IncludeCodeSnippets,
	})
	if err != nil {
		return nil, fmt.Errorf("seed context: %w", err)
	}

	p, loader, err := a.pipeline(ctx, tmpl, outDir, diagramStyle, req)
	if err != nil {
		return nil, err
	}

	a.log.Info("generating report",
		zap.String("notebook", req.Notebook),
		zap.String("report_type", string(typ)),
		zap.Strings("optional_seeds", notebook.OptionalSeedKeys(rc)))

	doc, trace, err := p.Run(ctx, rc)
	if custom := loader.Overrides(); len(custom) > 0 {
		a.log.Info("prompt overrides applied", zap.Int("count", len(custom)), zap.String("dir", s.Prompts.Dir))
	}
	if err != nil {
		a.record(ctx, trace, nil, req.Notebook, nil)
		return nil, err
	}

	if title := firstNonEmpty(req.Title, s.Report.Title); title != "" {
		titled := *doc
		titled.Title = title
		doc = &titled
	}

	meta := rc.View(report.ViewSpec{Facts: []string{report.FactAuthor, report.FactInstitution, report.FactBibliography}})
	opts := format.Options{
		IncludeTOC:  s.Report.IncludeTOC,
		Author:      meta.String(report.FactAuthor),
		Institution: meta.String(report.FactInstitution),
		AssetDir:    outDir,
		Trace:       trace,
		Printer:     a.ctx.printer,
	}
	if v, ok := meta.Value(report.FactBibliography); ok {
		if bib, ok := v.(citation.Bibliography); ok && len(bib.Entries) > 0 {
			opts.BibTeX = bib.BibTeX()
		}
	}

	res := &GenerateResult{RunID: trace.RunID, Document: doc, Trace: trace, Degraded: doc.DegradedSections()}
	md, err := format.MarkdownFormatter{}.Render(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	res.Markdown = string(md)

	if !req.NoWrite {
		paths, err := format.NewWriter(a.ctx.Fs, outDir).Write(doc, outFormat, req.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		res.Outputs = paths
	}

	a.record(ctx, trace, doc, req.Notebook, res.Outputs)
	return res, nil
}

func (a *ReportApp) pipeline(ctx context.Context, tmpl report.Template, outDir string, style diagram.Style, req GenerateRequest) (*pipeline.Pipeline, *prompts.Loader, error) {
	s := a.ctx.Settings

	gw, err := a.ctx.Gateway(ctx, req.Offline)
	if err != nil {
		return nil, nil, err
	}
	renderer, err := a.ctx.Renderer(outDir)
	if err != nil {
		return nil, nil, err
	}

	loader := prompts.NewLoader(a.ctx.Fs, s.Prompts.Dir)
	built, err := stages.Build(tmpl, stages.Deps{
		Prompts:       loader,
		Renderer:      renderer,
		DiagramStyle:  style,
		CitationStyle: s.CitationStyle(),
		Overrides:     s.StageOverrides(),
		Logger:        a.ctx.Logger.Named("stages"),
	})
	if err != nil {
		return nil, nil, err
	}

	cfg := pipeline.Config{
		Template:       tmpl,
		SeedKeys:       report.SeedKeys(),
		Gateway:        gw,
		CallTimeout:    s.LLM.Timeout,
		RunTimeout:     s.Pipeline.RunTimeout,
		MaxConcurrency: s.Pipeline.MaxConcurrency,
		Logger:         a.ctx.Logger.Named("pipeline"),
		Metrics:        a.ctx.Metrics,
		OnStage:        req.OnStage,
		OnPrompt:       logger.SetLastPrompt,
	}
	// A nil *SQLiteStore stored in the interface would not compare nil.
	if a.ctx.Store != nil {
		cfg.Cache = a.ctx.Store
	}
	p, err := pipeline.New(cfg, built...)
	return p, loader, err
}

// GenerateAll generates one report per notebook found under req.Notebook,
// which may be a file or a directory. Each report is named after its
// notebook unless a single notebook is given with req.Name set. A failed
// notebook does not stop the others; its error is joined into the result.
func (a *ReportApp) GenerateAll(ctx context.Context, req GenerateRequest) ([]*GenerateResult, error) {
	paths, err := notebook.Discover(a.ctx.Fs, req.Notebook)
	if err != nil {
		return nil, err
	}
	if len(paths) > 1 && req.Name != "" {
		return nil, fmt.Errorf("--name applies to a single notebook; %s holds %d", req.Notebook, len(paths))
	}

	var (
		results []*GenerateResult
		errs    []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		one := req
		one.Notebook = path
		if len(paths) > 1 {
			one.Name = utils.Slug(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		}
		res, err := a.Generate(ctx, one)
		if err != nil {
			a.log.Warn("notebook failed", zap.String("notebook", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// record appends the run to the history; failures are logged, not returned.
func (a *ReportApp) record(ctx context.Context, trace *pipeline.Trace, doc *report.Document, nb string, outputs []string) {
	if a.ctx.Store == nil || trace == nil {
		return
	}
	if err := a.ctx.Store.RecordRun(context.WithoutCancel(ctx), store.RunFromTrace(trace, doc, nb, outputs)); err != nil {
		a.log.Warn("record run failed", zap.String("run_id", trace.RunID), zap.Error(err))
	}
}

// History returns recorded runs, most recent first.
func (a *ReportApp) History(ctx context.Context, limit int) ([]store.Run, error) {
	if a.ctx.Store == nil {
		return nil, fmt.Errorf("run history is disabled (cache.enabled=false)")
	}
	return a.ctx.Store.ListRuns(ctx, limit)
}

// TemplateInfo describes a report template.
type TemplateInfo struct {
	Type     report.Type `json:"type" yaml:"type"`
	Sections []string    `json:"sections" yaml:"sections"`
	Stages   []string    `json:"stages" yaml:"stages"`
}

// Templates lists every report template with its sections and stage order.
func Templates() []TemplateInfo {
	var out []TemplateInfo
	for _, t := range report.Types() {
		tmpl, err := report.TemplateFor(t)
		if err != nil {
			continue
		}
		out = append(out, TemplateInfo{Type: t, Sections: tmpl.Names(), Stages: stages.Order(tmpl)})
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
