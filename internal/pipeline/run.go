package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/josephgoksu/ReportWing/internal/report"
	"go.uber.org/zap"
)

// placeholderText fills a declared section when a fallback builds nothing.
const placeholderText = "This section could not be generated automatically. Review the notebook and complete it manually."

// Run executes every stage in order over rc and assembles the document.
// It returns either a complete document or a single run-level error, never
// both. The trace is returned in either case.
func (p *Pipeline) Run(ctx context.Context, rc *report.Context) (*report.Document, *Trace, error) {
	runID := uuid.NewString()
	start := time.Now()
	trace := &Trace{RunID: runID, ReportType: p.cfg.Template.Type, Started: start}
	log := p.log.With(zap.String("run_id", runID), zap.String("report_type", string(p.cfg.Template.Type)))

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	fail := func(err error) (*report.Document, *Trace, error) {
		trace.Failed = true
		trace.Error = err.Error()
		trace.Elapsed = time.Since(start)
		p.cfg.Metrics.RecordRun(trace)
		log.Error("pipeline: run failed", zap.Error(err), zap.Duration("elapsed", trace.Elapsed))
		return nil, trace, err
	}

	log.Info("pipeline: run started", zap.Int("stages", len(p.stages)))
	sections := make(map[string]report.Section)

	for i, stage := range p.stages {
		d := p.descs[i]
		if err := ctx.Err(); err != nil {
			return fail(&RunError{RunID: runID, Stage: d.Name, Cause: err})
		}
		for _, f := range d.RequiredFacts {
			if !rc.Has(f) {
				return fail(&ConfigError{Stage: d.Name, Reason: fmt.Sprintf("required fact %q is missing at run time", f)})
			}
		}

		st, out, err := p.runStage(ctx, stage, d, rc, log)
		if err != nil {
			trace.Stages = append(trace.Stages, st)
			return fail(&RunError{RunID: runID, Stage: d.Name, Cause: err})
		}
		trace.Stages = append(trace.Stages, st)
		p.emit(log, st)
		for _, s := range out {
			sections[s.Name] = s
		}
	}

	doc := &report.Document{
		ReportType: p.cfg.Template.Type,
		Title:      documentTitle(rc),
	}
	for _, spec := range p.cfg.Template.Sections {
		if s, ok := sections[spec.Name]; ok {
			doc.Sections = append(doc.Sections, s)
		}
	}

	trace.Elapsed = time.Since(start)
	p.cfg.Metrics.RecordRun(trace)
	log.Info("pipeline: run finished",
		zap.Int("sections", len(doc.Sections)),
		zap.Strings("degraded", doc.DegradedSections()),
		zap.Int("gateway_calls", trace.GatewayCalls()),
		zap.Duration("elapsed", trace.Elapsed))
	return doc, trace, nil
}

// runStage returns an error only when the run itself must abort.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, d Descriptor, rc *report.Context, log *zap.Logger) (StageTrace, []report.Section, error) {
	start := time.Now()
	st := StageTrace{Stage: d.Name}
	view := rc.View(report.ViewSpec{Facts: d.viewFacts(), Stages: d.References})
	caller := NewCaller(p.cfg.Gateway, CallerConfig{
		Stage:       d.Name,
		MaxAttempts: d.MaxAttempts,
		Timeout:     p.cfg.CallTimeout,
		Concurrency: p.cfg.MaxConcurrency,
		Logger:      log,
		OnPrompt:    p.cfg.OnPrompt,
	})
	finish := func() {
		st.Calls = caller.Traces()
		st.Attempts = caller.Attempts()
		st.Elapsed = time.Since(start)
	}

	res, err := invoke(ctx, stage, caller, view)
	if err == nil {
		err = checkSections(d, res.Sections)
	}
	if err == nil {
		err = rc.Merge(d.Name, d.writableFacts(), res.Facts)
	}
	if err == nil {
		sections := p.normalize(d, res.Sections, false)
		if serr := rc.SetStageOutput(d.Name, sections); serr != nil {
			log.Warn("pipeline: stage output not recorded", zap.String("stage", d.Name), zap.Error(serr))
		}
		st.Outcome = OutcomeSucceeded
		if degraded := degradedNames(sections); len(degraded) > 0 {
			st.Outcome = OutcomeDegraded
			st.Reason = "stage marked sections degraded: " + strings.Join(degraded, ", ")
		} else {
			p.remember(ctx, p.cacheKey(rc, d), sections, log)
		}
		finish()
		return st, sections, nil
	}

	if cerr := ctx.Err(); cerr != nil {
		finish()
		return st, nil, cerr
	}

	st.Reason = err.Error()
	st.Policy = d.Fallback
	fb := stage.Fallback(view, res)
	if merr := rc.Merge(d.Name, d.writableFacts(), fb.Facts); merr != nil {
		log.Warn("pipeline: fallback facts rejected", zap.String("stage", d.Name), zap.Error(merr))
	}

	var sections []report.Section
	switch d.Fallback {
	case SkipSection:
		st.Outcome = OutcomeSkipped
	case UseLastGood:
		st.Outcome = OutcomeDegraded
		if cached, ok := p.lastGood(ctx, p.cacheKey(rc, d), d, log); ok {
			sections = p.normalize(d, cached, true)
			st.LastGood = true
		} else {
			sections = p.normalize(d, fb.Sections, true)
		}
	default:
		st.Outcome = OutcomeDegraded
		sections = p.normalize(d, fb.Sections, true)
	}
	if serr := rc.SetStageOutput(d.Name, sections); serr != nil {
		log.Warn("pipeline: stage output not recorded", zap.String("stage", d.Name), zap.Error(serr))
	}
	finish()
	// The fallback has been applied: exhausted calls end in Degraded.
	for i := range st.Calls {
		if st.Calls[i].State == StateExhausted {
			st.Calls[i].State = StateDegraded
		}
	}
	return st, sections, nil
}

func invoke(ctx context.Context, stage Stage, caller *Caller, view *report.View) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	calls, err := stage.Prepare(view)
	if err != nil {
		return Result{}, fmt.Errorf("prepare input: %w", err)
	}
	res, err = stage.Invoke(ctx, caller, view, calls)
	if err != nil {
		return res, err
	}
	if err := stage.Validate(res); err != nil {
		return res, fmt.Errorf("validate output: %w", err)
	}
	return res, nil
}

var errSectionMismatch = errors.New("section mismatch")

// checkSections requires exactly the declared sections, each with content.
func checkSections(d Descriptor, sections []report.Section) error {
	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if !slices.Contains(d.Produces, s.Name) {
			return fmt.Errorf("%w: undeclared section %q", errSectionMismatch, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: section %q emitted twice", errSectionMismatch, s.Name)
		}
		if s.Body.IsEmpty() {
			return fmt.Errorf("%w: section %q is empty", errSectionMismatch, s.Name)
		}
		seen[s.Name] = true
	}
	for _, name := range d.Produces {
		if !seen[name] {
			return fmt.Errorf("%w: declared section %q missing", errSectionMismatch, name)
		}
	}
	return nil
}

// normalize stamps provenance and template titles, and guarantees that every
// declared section carries content.
func (p *Pipeline) normalize(d Descriptor, in []report.Section, degraded bool) []report.Section {
	byName := make(map[string]report.Section, len(in))
	for _, s := range in {
		if slices.Contains(d.Produces, s.Name) {
			if _, dup := byName[s.Name]; !dup {
				byName[s.Name] = s.Clone()
			}
		}
	}
	out := make([]report.Section, 0, len(d.Produces))
	for _, name := range d.Produces {
		s, ok := byName[name]
		if !ok || s.Body.IsEmpty() {
			s = report.Section{Name: name, Body: report.Body{Blocks: []report.Block{report.Paragraph(placeholderText)}}, Degraded: true}
		}
		s.Title = report.SectionTitle(name)
		if idx := p.cfg.Template.Index(name); idx >= 0 {
			s.Title = p.cfg.Template.Sections[idx].Title
		}
		s.OriginStage = d.Name
		s.Degraded = s.Degraded || degraded
		out = append(out, s)
	}
	return out
}

func (p *Pipeline) cacheKey(rc *report.Context, d Descriptor) CacheKey {
	return CacheKey{Project: rc.Project(), ReportType: p.cfg.Template.Type, Stage: d.Name}
}

func (p *Pipeline) remember(ctx context.Context, key CacheKey, sections []report.Section, log *zap.Logger) {
	if p.cfg.Cache == nil {
		return
	}
	if err := p.cfg.Cache.Put(ctx, key, sections); err != nil {
		log.Warn("pipeline: cache write failed", zap.String("stage", key.Stage), zap.Error(err))
	}
}

func (p *Pipeline) lastGood(ctx context.Context, key CacheKey, d Descriptor, log *zap.Logger) ([]report.Section, bool) {
	if p.cfg.Cache == nil {
		return nil, false
	}
	cached, ok, err := p.cfg.Cache.Get(ctx, key)
	if err != nil {
		log.Warn("pipeline: cache read failed", zap.String("stage", d.Name), zap.Error(err))
		return nil, false
	}
	if !ok || checkSections(d, cached) != nil {
		return nil, false
	}
	return cached, true
}

func (p *Pipeline) emit(log *zap.Logger, st StageTrace) {
	fields := []zap.Field{
		zap.String("stage", st.Stage),
		zap.String("outcome", string(st.Outcome)),
		zap.Int("attempts", st.Attempts),
		zap.Duration("elapsed", st.Elapsed),
	}
	if st.Policy != "" {
		fields = append(fields, zap.String("policy", string(st.Policy)), zap.Bool("last_good", st.LastGood))
	}
	if st.Reason != "" {
		fields = append(fields, zap.String("reason", st.Reason))
	}
	if st.Outcome == OutcomeSucceeded {
		log.Info("pipeline: stage finished", fields...)
	} else {
		log.Warn("pipeline: stage degraded", fields...)
	}
	if p.cfg.OnStage != nil {
		p.cfg.OnStage(st)
	}
}

func degradedNames(sections []report.Section) []string {
	var out []string
	for _, s := range sections {
		if s.Degraded {
			out = append(out, s.Name)
		}
	}
	return out
}

func documentTitle(rc *report.Context) string {
	v := rc.View(report.ViewSpec{Facts: []string{report.FactProjectTitle, report.FactNotebookTitle}})
	for _, k := range []string{report.FactProjectTitle, report.FactNotebookTitle} {
		if t := strings.TrimSpace(v.String(k)); t != "" {
			return t
		}
	}
	return "Technical Report"
}
