package httpcall

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Dispatcher runs enqueued call executions off the caller's goroutine.
//
// Dispatch must either start task exactly once or return an error without
// starting it. A panic inside task belongs to the goroutine running it;
// dispatchers must not recover it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task func()) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, task func()) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, task func()) error {
	return f(ctx, task)
}

type goDispatcher struct{}

func (goDispatcher) Dispatch(_ context.Context, task func()) error {
	go task()
	return nil
}

// GoDispatcher starts one goroutine per task and never blocks. It is the
// factory default.
var GoDispatcher Dispatcher = goDispatcher{}

// BoundedDispatcher limits the number of in-flight asynchronous executions.
// Dispatch blocks while the limit is reached, until a slot frees up or ctx
// is done.
type BoundedDispatcher struct {
	sem   *semaphore.Weighted
	limit int64
}

// NewBoundedDispatcher returns a dispatcher allowing at most limit concurrent
// tasks. A limit below 1 is treated as 1.
func NewBoundedDispatcher(limit int64) *BoundedDispatcher {
	if limit < 1 {
		limit = 1
	}
	return &BoundedDispatcher{sem: semaphore.NewWeighted(limit), limit: limit}
}

// Dispatch implements Dispatcher.
func (d *BoundedDispatcher) Dispatch(ctx context.Context, task func()) error {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire dispatch slot: %w", err)
	}
	go func() {
		defer d.sem.Release(1)
		task()
	}()
	return nil
}

// Drain waits until every dispatched task has finished, or ctx is done.
func (d *BoundedDispatcher) Drain(ctx context.Context) error {
	if err := d.sem.Acquire(ctx, d.limit); err != nil {
		return err
	}
	d.sem.Release(d.limit)
	return nil
}
