package pipeline

import (
	"context"
	"sync"

	"github.com/josephgoksu/ReportWing/internal/report"
)

// CacheKey identifies one stage's output for one input and report type.
type CacheKey struct {
	Project    string
	ReportType report.Type
	Stage      string
}

// Cache keeps the most recent successful output of each stage so a later
// run over the same input can fall back to it.
type Cache interface {
	Get(ctx context.Context, key CacheKey) ([]report.Section, bool, error)
	Put(ctx context.Context, key CacheKey, sections []report.Section) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[CacheKey][]report.Section
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[CacheKey][]report.Section)}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key CacheKey) ([]report.Section, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.entries[key]
	return report.CloneSections(s), ok, nil
}

// Put implements Cache.
func (m *MemoryCache) Put(_ context.Context, key CacheKey, sections []report.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = report.CloneSections(sections)
	return nil
}
