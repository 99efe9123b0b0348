package pipeline

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned by a call that used every allowed attempt.
var ErrExhausted = errors.New("attempts exhausted")

// ConfigError is a fatal, never-retried pipeline misconfiguration.
type ConfigError struct {
	Stage  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Stage == "" {
		return "pipeline config: " + e.Reason
	}
	return fmt.Sprintf("pipeline config: stage %q: %s", e.Stage, e.Reason)
}

// RunError aborts a whole run. No partial document accompanies it.
type RunError struct {
	RunID string
	Stage string
	Cause error
}

func (e *RunError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("run %s aborted: %v", e.RunID, e.Cause)
	}
	return fmt.Sprintf("run %s aborted during %s: %v", e.RunID, e.Stage, e.Cause)
}

func (e *RunError) Unwrap() error { return e.Cause }

// CallError reports a call that ran out of attempts.
type CallError struct {
	Call     string
	Attempts int
	Last     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s: %d attempts exhausted: %v", e.Call, e.Attempts, e.Last)
}

func (e *CallError) Unwrap() []error { return []error{ErrExhausted, e.Last} }
