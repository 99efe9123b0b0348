package report

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

var (
	// ErrFactExists is returned when a write would overwrite an existing fact.
	ErrFactExists = errors.New("fact already exists")
	// ErrNotSequence is returned when appending to a scalar fact.
	ErrNotSequence = errors.New("fact is not a sequence")
	// ErrUndeclaredFact is returned when a producer writes a key it did not declare.
	ErrUndeclaredFact = errors.New("fact not declared by producer")
	// ErrOutputExists is returned when a stage output is recorded twice.
	ErrOutputExists = errors.New("stage output already recorded")
)

// Cloner lets custom fact values provide their own deep copy.
type Cloner interface {
	CloneValue() any
}

type seqItem struct {
	value    any
	producer string
}

type fact struct {
	value    any
	producer string
	sequence bool
	items    []seqItem
}

// Context is the append-only store of everything known during one run.
// Facts are never overwritten; sequences only grow.
type Context struct {
	mu            sync.RWMutex
	sourceSummary string
	project       string
	facts         map[string]*fact
	outputs       map[string][]Section
}

// NewContext creates an empty context with the given source summary.
func NewContext(sourceSummary string) *Context {
	return &Context{
		sourceSummary: sourceSummary,
		facts:         make(map[string]*fact),
		outputs:       make(map[string][]Section),
	}
}

// SourceSummary returns the condensed description of the parsed input.
func (c *Context) SourceSummary() string {
	return c.sourceSummary
}

// SetProject records the identity of the input, typically the notebook path.
func (c *Context) SetProject(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project = id
}

// Project identifies the input this context was seeded from. Without an
// explicit identity it falls back to a hash of the source summary, so two
// different inputs never share one.
func (c *Context) Project() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.project != "" {
		return c.project
	}
	sum := sha256.Sum256([]byte(c.sourceSummary))
	return "summary:" + hex.EncodeToString(sum[:8])
}

// AddFact records a new scalar fact.
func (c *Context) AddFact(producer, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.facts[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrFactExists)
	}
	c.facts[key] = &fact{value: cloneValue(value), producer: producer}
	return nil
}

// AppendFact extends a sequence fact, creating it when absent.
func (c *Context) AppendFact(producer, key string, items ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(producer, key, items)
}

func (c *Context) appendLocked(producer, key string, items []any) error {
	f, ok := c.facts[key]
	if !ok {
		f = &fact{producer: producer, sequence: true}
		c.facts[key] = f
	} else if !f.sequence {
		return fmt.Errorf("%s: %w", key, ErrNotSequence)
	}
	for _, it := range items {
		f.items = append(f.items, seqItem{value: cloneValue(it), producer: producer})
	}
	return nil
}

// Merge validates every write against the append-only rules and the
// producer's declared keys, then applies them all or none.
func (c *Context) Merge(producer string, declared []string, writes []FactWrite) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// value: true for a plain write, false for an append
	seen := make(map[string]bool, len(writes))
	for _, w := range writes {
		if !slices.Contains(declared, w.Key) {
			return fmt.Errorf("%s wrote %s: %w", producer, w.Key, ErrUndeclaredFact)
		}
		f, exists := c.facts[w.Key]
		plain, written := seen[w.Key]
		if w.Append {
			if (exists && !f.sequence) || (written && plain) {
				return fmt.Errorf("%s: %w", w.Key, ErrNotSequence)
			}
			seen[w.Key] = false
			continue
		}
		if exists || written {
			return fmt.Errorf("%s: %w", w.Key, ErrFactExists)
		}
		seen[w.Key] = true
	}

	for _, w := range writes {
		if w.Append {
			if err := c.appendLocked(producer, w.Key, w.Items); err != nil {
				return err
			}
			continue
		}
		c.facts[w.Key] = &fact{value: cloneValue(w.Value), producer: producer}
	}
	return nil
}

// Has reports whether a fact is present.
func (c *Context) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.facts[key]
	return ok
}

// Keys returns every fact key in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.facts))
	for k := range c.facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Provenance returns the producer of a fact. For sequences it returns the
// producer of each item in order.
func (c *Context) Provenance(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.facts[key]
	if !ok {
		return nil
	}
	if !f.sequence {
		return []string{f.producer}
	}
	out := make([]string, len(f.items))
	for i, it := range f.items {
		out[i] = it.producer
	}
	return out
}

// SetStageOutput records the sections a stage produced. Each stage records once.
func (c *Context) SetStageOutput(stage string, sections []Section) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.outputs[stage]; ok {
		return fmt.Errorf("%s: %w", stage, ErrOutputExists)
	}
	c.outputs[stage] = CloneSections(sections)
	return nil
}

// ViewSpec selects what a view exposes.
type ViewSpec struct {
	Facts  []string
	Stages []string
}

// View builds a read-only snapshot restricted to the requested facts and the
// outputs of the requested stages. Absent keys are simply left out.
func (c *Context) View(spec ViewSpec) *View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := &View{
		summary:  c.sourceSummary,
		facts:    make(map[string]any, len(spec.Facts)),
		sections: make(map[string][]Section, len(spec.Stages)),
	}
	for _, k := range spec.Facts {
		f, ok := c.facts[k]
		if !ok {
			continue
		}
		if f.sequence {
			items := make([]any, len(f.items))
			for i, it := range f.items {
				items[i] = cloneValue(it.value)
			}
			v.facts[k] = items
			continue
		}
		v.facts[k] = cloneValue(f.value)
	}
	for _, s := range spec.Stages {
		if out, ok := c.outputs[s]; ok {
			v.sections[s] = CloneSections(out)
		}
	}
	return v
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int64, float32, float64:
		return x
	case Cloner:
		return x.CloneValue()
	case []string:
		return append([]string(nil), x...)
	case []int:
		return append([]int(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out
	case map[string]int:
		out := make(map[string]int, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []ModelScore:
		return append([]ModelScore(nil), x...)
	case Figure, ModelScore:
		return x
	case Section:
		return x.Clone()
	default:
		return x
	}
}
