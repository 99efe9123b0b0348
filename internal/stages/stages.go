/*
Package stages provides the built-in report generation stages and the
registry that assembles them into a pipeline for a report template.
*/
package stages

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/josephgoksu/ReportWing/internal/citation"
	"github.com/josephgoksu/ReportWing/internal/diagram"
	"github.com/josephgoksu/ReportWing/internal/pipeline"
	"github.com/josephgoksu/ReportWing/internal/report"
	"github.com/josephgoksu/ReportWing/prompts"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Stage names that are not section names.
const (
	NameAnalysis = "analysis"
)

// Override adjusts a stage's retry bound or fallback policy.
type Override struct {
	MaxAttempts int
	Fallback    pipeline.FallbackPolicy
}

// Deps are the collaborators stages are built with.
type Deps struct {
	ReportType    report.Type
	Prompts       *prompts.Loader
	Renderer      diagram.Renderer
	DiagramStyle  diagram.Style
	CitationStyle citation.Style
	// Year stamps generic citations.
	Year      string
	Overrides map[string]Override
	Logger    *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Prompts == nil {
		d.Prompts = prompts.NewLoader(afero.NewMemMapFs(), "")
	}
	if d.Renderer == nil {
		d.Renderer = diagram.NoopRenderer{}
	}
	if d.DiagramStyle == "" {
		d.DiagramStyle = diagram.StyleStandard
	}
	if d.CitationStyle == "" {
		d.CitationStyle = citation.IEEE
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Year == "" {
		d.Year = strconv.Itoa(time.Now().Year())
	}
	return d
}

// apply folds a configured override into a descriptor.
func (d Deps) apply(desc pipeline.Descriptor) pipeline.Descriptor {
	if o, ok := d.Overrides[desc.Name]; ok {
		if o.MaxAttempts > 0 {
			desc.MaxAttempts = o.MaxAttempts
		}
		if o.Fallback != "" {
			desc.Fallback = o.Fallback
		}
	}
	return desc
}

// StageFactory builds a stage. references are the earlier stages whose
// sections the stage may read.
type StageFactory func(deps Deps, references []string) pipeline.Stage

// StageInfo describes a stage for the registry.
type StageInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type registration struct {
	info    StageInfo
	factory StageFactory
	// wants lists stages whose output the stage reads when they run earlier.
	wants []string
}

var (
	factories   = make(map[string]registration)
	factoriesMu sync.RWMutex
)

// RegisterStageFactory registers a factory under a stage name.
func RegisterStageFactory(name, description string, wants []string, factory StageFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = registration{info: StageInfo{Name: name, Description: description}, factory: factory, wants: wants}
}

// Registry returns metadata for all registered stages, sorted by name.
func Registry() []StageInfo {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	infos := make([]StageInfo, 0, len(factories))
	for _, r := range factories {
		infos = append(infos, r.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// summaries run after the sections they summarize.
var summaries = []string{report.SectionAbstract, report.SectionExecutiveSummary}

// Order returns the stage execution order for a template: analysis first,
// then diagrams, then the narrative sections in template order with
// summaries moved to the end, then references.
func Order(t report.Template) []string {
	order := []string{NameAnalysis}
	if t.Has(report.SectionDiagrams) {
		order = append(order, report.SectionDiagrams)
	}
	var tail []string
	for _, s := range t.Sections {
		switch {
		case s.Name == report.SectionDiagrams, s.Name == report.SectionReferences:
		case slices.Contains(summaries, s.Name):
			tail = append(tail, s.Name)
		default:
			order = append(order, s.Name)
		}
	}
	order = append(order, tail...)
	if t.Has(report.SectionReferences) {
		order = append(order, report.SectionReferences)
	}
	return order
}

// Build creates the stages for a template in execution order.
func Build(t report.Template, deps Deps) ([]pipeline.Stage, error) {
	deps = deps.withDefaults()
	deps.ReportType = t.Type

	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	var out []pipeline.Stage
	var earlier []string
	for _, name := range Order(t) {
		r, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("no stage registered for %q", name)
		}
		var refs []string
		for _, w := range r.wants {
			if slices.Contains(earlier, w) {
				refs = append(refs, w)
			}
		}
		out = append(out, r.factory(deps, refs))
		earlier = append(earlier, name)
	}
	return out, nil
}
