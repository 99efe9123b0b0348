package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Params tunes a single generation request.
type Params struct {
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// Gateway is the narrow text-in/text-out boundary every stage talks to.
type Gateway interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, prompt string, params Params) (string, error)

// Generate implements Gateway.
func (f GatewayFunc) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return f(ctx, prompt, params)
}

// FailureKind classifies why a generation attempt failed.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureMalformed   FailureKind = "malformed"
	FailureUnavailable FailureKind = "unavailable"
)

// Failure is the typed error every Gateway failure is normalized into.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return "llm " + string(f.Kind)
	}
	return fmt.Sprintf("llm %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// NewFailure wraps err with a failure kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// ErrEmptyResponse is returned when the backend answers with no text.
var ErrEmptyResponse = errors.New("empty response")

var (
	timeoutPatterns = []string{
		"deadline exceeded",
		"timeout",
		"timed out",
	}
	malformedPatterns = []string{
		"parse json",
		"unmarshal",
		"invalid character",
		"no json",
		"empty response",
		"malformed",
	}
)

// Classify normalizes any backend error into a *Failure.
// Errors that are neither timeouts nor malformed output (rate limits, quota,
// refused connections, 5xx, auth) are treated as an unavailable backend.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewFailure(FailureTimeout, err)
	}
	if errors.Is(err, ErrEmptyResponse) {
		return NewFailure(FailureMalformed, err)
	}
	msg := strings.ToLower(err.Error())
	for _, p := range timeoutPatterns {
		if strings.Contains(msg, p) {
			return NewFailure(FailureTimeout, err)
		}
	}
	for _, p := range malformedPatterns {
		if strings.Contains(msg, p) {
			return NewFailure(FailureMalformed, err)
		}
	}
	return NewFailure(FailureUnavailable, err)
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}

// Offline is a Gateway with no backend. Every request fails as unavailable,
// so each stage degrades to the content it can derive from known facts.
type Offline struct{}

// Generate implements Gateway.
func (Offline) Generate(ctx context.Context, _ string, _ Params) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", NewFailure(FailureUnavailable, errors.New("no LLM provider configured"))
}
