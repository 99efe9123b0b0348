package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/josephgoksu/ReportWing/internal/llm"
	"go.uber.org/zap"
)

// Response is the outcome of one call.
type Response struct {
	CallID   string
	Text     string
	Attempts int
	Err      error
}

// Caller drives Gateway calls for a single stage. Each call walks
// Pending -> Attempting(k) -> Succeeded | Attempting(k+1) | Exhausted,
// issuing at most maxAttempts requests.
type Caller struct {
	gateway     llm.Gateway
	stage       string
	maxAttempts int
	timeout     time.Duration
	concurrency int
	log         *zap.Logger
	onPrompt    func(string)

	mu    sync.Mutex
	calls []CallTrace
}

// CallerConfig configures a Caller.
type CallerConfig struct {
	Stage       string
	MaxAttempts int
	Timeout     time.Duration
	Concurrency int
	Logger      *zap.Logger
	// OnPrompt observes every prompt before it is sent.
	OnPrompt func(string)
}

// NewCaller creates a Caller bound to one stage.
func NewCaller(gw llm.Gateway, cfg CallerConfig) *Caller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Caller{
		gateway:     gw,
		stage:       cfg.Stage,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		log:         cfg.Logger,
		onPrompt:    cfg.OnPrompt,
	}
}

// Call runs one call through the retry state machine. It returns a
// *CallError once attempts are exhausted, or the context error when the run
// itself is cancelled.
func (c *Caller) Call(ctx context.Context, call Call) (string, error) {
	text, _, err := c.run(ctx, call)
	return text, err
}

func (c *Caller) run(ctx context.Context, call Call) (string, int, error) {
	start := time.Now()
	ct := CallTrace{ID: call.ID, State: StatePending}

	var (
		text    string
		lastErr error
	)
	state := StatePending
	attempt := 0

	for {
		switch state {
		case StatePending:
			attempt = 1
			state = StateAttempting

		case StateAttempting:
			ct.Attempts = attempt
			out, err := c.attempt(ctx, call)
			if err == nil {
				text = out
				state = StateSucceeded
				continue
			}
			if ctx.Err() != nil {
				ct.State = StateAttempting
				ct.Elapsed = time.Since(start)
				c.record(ct)
				return "", attempt, ctx.Err()
			}
			lastErr = err
			ct.Failures = append(ct.Failures, err.Error())
			c.log.Debug("pipeline: call attempt failed",
				zap.String("stage", c.stage),
				zap.String("call", call.ID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt >= c.maxAttempts {
				state = StateExhausted
				continue
			}
			attempt++

		case StateSucceeded:
			ct.State = StateSucceeded
			ct.Elapsed = time.Since(start)
			c.record(ct)
			return text, attempt, nil

		case StateExhausted:
			ct.State = StateExhausted
			ct.Elapsed = time.Since(start)
			c.record(ct)
			return "", attempt, &CallError{Call: call.ID, Attempts: attempt, Last: lastErr}
		}
	}
}

// attempt issues one Gateway request under the per-call timeout and
// normalizes every failure into *llm.Failure.
func (c *Caller) attempt(ctx context.Context, call Call) (string, error) {
	actx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.onPrompt != nil {
		c.onPrompt(call.Prompt)
	}
	params := call.Params
	if params.Timeout == 0 {
		params.Timeout = c.timeout
	}
	out, err := c.gateway.Generate(actx, call.Prompt, params)
	if err != nil {
		if ctx.Err() == nil && actx.Err() != nil {
			return "", llm.NewFailure(llm.FailureTimeout, actx.Err())
		}
		return "", llm.Classify(err)
	}
	if call.Check != nil {
		if err := call.Check(out); err != nil {
			return "", llm.NewFailure(llm.FailureMalformed, err)
		}
	}
	return out, nil
}

// CallAll runs calls concurrently, bounded by the pipeline's concurrency
// limit. Responses come back in the order of calls; one failing call never
// affects its siblings.
func (c *Caller) CallAll(ctx context.Context, calls []Call) []Response {
	return FanOut(ctx, c.concurrency, calls, func(ctx context.Context, call Call) Response {
		text, attempts, err := c.run(ctx, call)
		return Response{CallID: call.ID, Text: text, Attempts: attempts, Err: err}
	})
}

func (c *Caller) record(ct CallTrace) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, ct)
}

// Traces returns call traces in completion order.
func (c *Caller) Traces() []CallTrace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CallTrace(nil), c.calls...)
}

// Attempts is the number of Gateway requests issued so far.
func (c *Caller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ct := range c.calls {
		n += ct.Attempts
	}
	return n
}
