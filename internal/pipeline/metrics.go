/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com

Metrics collection for pipeline runs.
*/
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters across pipeline runs. Safe for concurrent use.
type Metrics struct {
	TotalRuns      atomic.Int64
	FailedRuns     atomic.Int64
	GatewayCalls   atomic.Int64
	DegradedStages atomic.Int64
	SkippedStages  atomic.Int64

	totalDuration atomic.Int64 // nanoseconds

	mu     sync.RWMutex
	stages map[string]*StageStats
}

// StageStats contains per-stage statistics
type StageStats struct {
	Runs     int64
	Degraded int64
	Attempts int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{stages: make(map[string]*StageStats)}
}

// RecordRun folds a finished run's trace into the counters.
func (m *Metrics) RecordRun(t *Trace) {
	if m == nil || t == nil {
		return
	}
	m.TotalRuns.Add(1)
	if t.Failed {
		m.FailedRuns.Add(1)
	}
	m.totalDuration.Add(int64(t.Elapsed))

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range t.Stages {
		m.GatewayCalls.Add(int64(st.Attempts))
		stats := m.stages[st.Stage]
		if stats == nil {
			stats = &StageStats{}
			m.stages[st.Stage] = stats
		}
		stats.Runs++
		stats.Attempts += int64(st.Attempts)
		switch st.Outcome {
		case OutcomeDegraded:
			stats.Degraded++
			m.DegradedStages.Add(1)
		case OutcomeSkipped:
			stats.Degraded++
			m.SkippedStages.Add(1)
		}
	}
}

// Snapshot is a point-in-time view of metrics
type Snapshot struct {
	TotalRuns      int64
	FailedRuns     int64
	GatewayCalls   int64
	DegradedStages int64
	SkippedStages  int64
	AvgRunDuration time.Duration
	Stages         map[string]StageStats
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stages := make(map[string]StageStats, len(m.stages))
	for name, s := range m.stages {
		stages[name] = *s
	}
	runs := m.TotalRuns.Load()
	var avg time.Duration
	if runs > 0 {
		avg = time.Duration(m.totalDuration.Load()) / time.Duration(runs)
	}
	return Snapshot{
		TotalRuns:      runs,
		FailedRuns:     m.FailedRuns.Load(),
		GatewayCalls:   m.GatewayCalls.Load(),
		DegradedStages: m.DegradedStages.Load(),
		SkippedStages:  m.SkippedStages.Load(),
		AvgRunDuration: avg,
		Stages:         stages,
	}
}

// String returns a human-readable metrics summary
func (s Snapshot) String() string {
	var sb strings.Builder
	sb.WriteString("=== Pipeline Metrics ===\n")
	fmt.Fprintf(&sb, "Runs: %d (%d failed)\n", s.TotalRuns, s.FailedRuns)
	fmt.Fprintf(&sb, "Gateway Calls: %d\n", s.GatewayCalls)
	fmt.Fprintf(&sb, "Degraded Stages: %d\n", s.DegradedStages)
	fmt.Fprintf(&sb, "Skipped Stages: %d\n", s.SkippedStages)
	fmt.Fprintf(&sb, "Avg Run Duration: %s\n", s.AvgRunDuration.Round(time.Millisecond))

	if len(s.Stages) > 0 {
		sb.WriteString("\n--- Per-Stage ---\n")
		names := make([]string, 0, len(s.Stages))
		for n := range s.Stages {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			st := s.Stages[n]
			fmt.Fprintf(&sb, "%s: %d runs, %d attempts, %d degraded\n", n, st.Runs, st.Attempts, st.Degraded)
		}
	}
	return sb.String()
}
