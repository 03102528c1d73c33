package invoice2pdf

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MinPoolSize keeps some parallelism on single-CPU machines.
const MinPoolSize = 2

// WorkerPool bounds how many tasks of one stage run at once.
// Every Run call gets its own limit, so tasks may call Run again
// (nested archives do) without waiting on a slot held by their parent.
type WorkerPool struct {
	size int
}

// NewWorkerPool returns a pool of ResolvePoolSize(n) workers.
func NewWorkerPool(n int) *WorkerPool {
	return &WorkerPool{size: ResolvePoolSize(n)}
}

// Size returns the pool capacity.
func (p *WorkerPool) Size() int {
	return p.size
}

// Run calls fn(ctx, i) for every i in [0, n) with at most Size calls in
// flight, and returns once all of them have returned. A failing task does
// not stop the others; the first error is returned.
func (p *WorkerPool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(p.size)
	for i := range n {
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers; one CPU is left
	// for the coordinating goroutine and Chrome.
	return max(MinPoolSize, runtime.GOMAXPROCS(0)-1)
}
