package pipeline

import (
	"time"

	"github.com/josephgoksu/ReportWing/internal/report"
)

// CallState is a node of the per-call retry state machine.
type CallState string

const (
	StatePending    CallState = "pending"
	StateAttempting CallState = "attempting"
	StateSucceeded  CallState = "succeeded"
	StateExhausted  CallState = "exhausted"
	StateDegraded   CallState = "degraded"
)

// StageOutcome is how a stage ended.
type StageOutcome string

const (
	OutcomeSucceeded StageOutcome = "succeeded"
	OutcomeDegraded  StageOutcome = "degraded"
	OutcomeSkipped   StageOutcome = "skipped"
)

// CallTrace records one call's attempts.
type CallTrace struct {
	ID       string        `json:"id" yaml:"id"`
	State    CallState     `json:"state" yaml:"state"`
	Attempts int           `json:"attempts" yaml:"attempts"`
	Failures []string      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
}

// StageTrace is the structured record emitted for every stage.
type StageTrace struct {
	Stage    string         `json:"stage" yaml:"stage"`
	Outcome  StageOutcome   `json:"outcome" yaml:"outcome"`
	Policy   FallbackPolicy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Attempts int            `json:"attempts" yaml:"attempts"`
	Calls    []CallTrace    `json:"calls,omitempty" yaml:"calls,omitempty"`
	Elapsed  time.Duration  `json:"elapsed" yaml:"elapsed"`
	Reason   string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	// LastGood is set when the section came from a previous run's output.
	LastGood bool `json:"last_good,omitempty" yaml:"last_good,omitempty"`
}

// Trace covers one run.
type Trace struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	ReportType report.Type   `json:"report_type" yaml:"report_type"`
	Started    time.Time     `json:"started" yaml:"started"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Failed     bool          `json:"failed" yaml:"failed"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Stages     []StageTrace  `json:"stages" yaml:"stages"`
}

// Stage returns the trace for a stage by name.
func (t *Trace) Stage(name string) (StageTrace, bool) {
	for _, s := range t.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageTrace{}, false
}

// GatewayCalls sums attempts across all stages.
func (t *Trace) GatewayCalls() int {
	n := 0
	for _, s := range t.Stages {
		n += s.Attempts
	}
	return n
}
