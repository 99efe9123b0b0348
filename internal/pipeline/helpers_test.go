package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"github.com/josephgoksu/ReportWing/internal/report"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedGateway answers prompts by looking up the stage prefix of the
// prompt ("<stage>:<section>") in a script. Unscripted prompts echo back.
type scriptedGateway struct {
	mu      sync.Mutex
	calls   map[string]int
	script  map[string]func(attempt int) (string, error)
	latency map[string]time.Duration
	order   []string
}

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		calls:   make(map[string]int),
		script:  make(map[string]func(int) (string, error)),
		latency: make(map[string]time.Duration),
	}
}

func (g *scriptedGateway) on(prompt string, fn func(attempt int) (string, error)) *scriptedGateway {
	g.script[prompt] = fn
	return g
}

func (g *scriptedGateway) Generate(ctx context.Context, prompt string, _ llm.Params) (string, error) {
	g.mu.Lock()
	g.calls[prompt]++
	attempt := g.calls[prompt]
	g.order = append(g.order, prompt)
	fn := g.script[prompt]
	delay := g.latency[prompt]
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fn == nil {
		return "generated text for " + prompt, nil
	}
	return fn(attempt)
}

func (g *scriptedGateway) count(prompt string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[prompt]
}

func (g *scriptedGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

func alwaysFail(kind llm.FailureKind) func(int) (string, error) {
	return func(int) (string, error) {
		return "", llm.NewFailure(kind, errors.New("scripted failure"))
	}
}

// textStage issues one call per produced section and turns each answer
// into a paragraph.
type textStage struct {
	desc     Descriptor
	facts    func(view *report.View) []report.FactWrite
	invokeFn func(ctx context.Context, caller *Caller, calls []Call) (Result, error)
	check    func(string) error
}

func (s *textStage) Descriptor() Descriptor { return s.desc }

func (s *textStage) Prepare(view *report.View) ([]Call, error) {
	calls := make([]Call, len(s.desc.Produces))
	for i, sec := range s.desc.Produces {
		calls[i] = Call{ID: sec, Prompt: s.desc.Name + ":" + sec, Check: s.check}
	}
	return calls, nil
}

func (s *textStage) Invoke(ctx context.Context, caller *Caller, view *report.View, calls []Call) (Result, error) {
	if s.invokeFn != nil {
		return s.invokeFn(ctx, caller, calls)
	}
	var res Result
	var errs []error
	for i, resp := range caller.CallAll(ctx, calls) {
		if resp.Err != nil {
			errs = append(errs, resp.Err)
			continue
		}
		res.Sections = append(res.Sections, report.Section{
			Name: s.desc.Produces[i],
			Body: report.Body{Blocks: []report.Block{report.Paragraph(resp.Text)}},
		})
	}
	if s.facts != nil {
		res.Facts = s.facts(view)
	}
	return res, errors.Join(errs...)
}

func (s *textStage) Validate(res Result) error {
	for _, sec := range res.Sections {
		if strings.TrimSpace(sec.Body.PlainText()) == "" {
			return fmt.Errorf("section %s is empty", sec.Name)
		}
	}
	return nil
}

func (s *textStage) Fallback(view *report.View, partial Result) Result {
	out := Result{}
	if s.facts != nil {
		out.Facts = s.facts(view)
	}
	done := make(map[string]report.Section)
	for _, sec := range partial.Sections {
		done[sec.Name] = sec
	}
	for _, name := range s.desc.Produces {
		if sec, ok := done[name]; ok {
			out.Sections = append(out.Sections, sec)
			continue
		}
		out.Sections = append(out.Sections, report.Section{
			Name: name,
			Body: report.Body{Blocks: []report.Block{report.Paragraph("placeholder for " + name)}},
		})
	}
	return out
}

func stage(name string, produces []string, required []string, provides []string, policy FallbackPolicy) *textStage {
	return &textStage{desc: Descriptor{
		Name:          name,
		RequiredFacts: required,
		ProvidesFacts: provides,
		Produces:      produces,
		MaxAttempts:   3,
		Fallback:      policy,
	}}
}

func setFacts(keys ...string) func(*report.View) []report.FactWrite {
	return func(*report.View) []report.FactWrite {
		out := make([]report.FactWrite, len(keys))
		for i, k := range keys {
			out[i] = report.Set(k, "value of "+k)
		}
		return out
	}
}

func tinyTemplate(sections ...string) report.Template {
	t := report.Template{Type: report.Academic}
	for _, s := range sections {
		t.Sections = append(t.Sections, report.SectionSpec{Name: s, Title: report.SectionTitle(s)})
	}
	return t
}

func seededContext() *report.Context {
	rc := report.NewContext("A churn notebook with three classifiers.")
	_ = rc.AddFact(report.SeedProducer, "dataset_rows", 30000)
	return rc
}
