package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FanOut applies fn to every input with at most limit running at once and
// returns results in input order. fn reports its own failures in the result,
// so a failing item never cancels the others.
func FanOut[In, Out any](ctx context.Context, limit int, inputs []In, fn func(context.Context, In) Out) []Out {
	out := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return out
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			out[i] = fn(ctx, in)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
