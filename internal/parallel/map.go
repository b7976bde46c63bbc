package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls mapFunc for every element of input using at most limit
// goroutines and returns the results in the order of input.
//
// The first error cancels the context passed to the remaining calls, no new
// calls are started and the error is returned together with the results
// computed so far. A canceled ctx behaves the same way.
func Map[E, D any](ctx context.Context, limit int, input []E, mapFunc func(context.Context, E) (D, error)) ([]D, error) {
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	ret := make([]D, len(input))
	for i, e := range input {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := mapFunc(gctx, e)
			if err != nil {
				return err
			}
			ret[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ret, err
	}
	// canceled before any worker noticed
	return ret, ctx.Err()
}
