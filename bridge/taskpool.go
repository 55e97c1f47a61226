package bridge

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// TaskPool runs work in parallel with bounded concurrency. Systems opt in by reading the
// resource; tasks must not touch host objects.
type TaskPool struct {
	size int
}

// NewTaskPool returns a pool running at most size tasks at once. A size of zero or less
// means GOMAXPROCS.
func NewTaskPool(size int) TaskPool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return TaskPool{size: size}
}

// Size returns the concurrency limit.
func (p TaskPool) Size() int {
	if p.size <= 0 {
		return 1
	}
	return p.size
}

// Run executes tasks and waits for all of them. The first error cancels the context
// passed to the remaining tasks and is returned.
func (p TaskPool) Run(ctx context.Context, tasks ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Size())
	for _, task := range tasks {
		g.Go(func() error {
			return task(ctx)
		})
	}
	return g.Wait()
}

// ParallelFor calls fn for every index in [0, n), split into one contiguous chunk per
// worker.
func (p TaskPool) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := min(p.Size(), n)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}
