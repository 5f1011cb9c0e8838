package suggest

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs the outcome of one request of a batch.
type BatchResult struct {
	Results *Results
	Err     error
}

// SearchBatch runs reqs on up to workers goroutines. Per-query failures are
// reported in the matching BatchResult; the returned error is only set when
// ctx ends first.
func (s *Searcher) SearchBatch(ctx context.Context, reqs []Request, workers int) ([]BatchResult, error) {
	out := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Search(gctx, req)
			out[i] = BatchResult{Results: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
