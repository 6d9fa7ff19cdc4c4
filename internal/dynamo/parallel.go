package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelFor executes fn over [0, n) split into contiguous chunks of at
// least minChunk indices. The first error cancels the remaining chunks.
func ParallelFor(ctx context.Context, n, minChunk int, fn func(ctx context.Context, start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	numWorkers := runtime.GOMAXPROCS(0)
	if n <= minChunk || numWorkers <= 1 {
		return fn(ctx, 0, n)
	}

	workers := numWorkers
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error {
			return fn(gctx, s, e)
		})
	}

	return g.Wait()
}
