package httpcall

import (
	"context"
	"sync"
)

// Callback receives the outcome of an enqueued call. Exactly one method is
// invoked, exactly once, on the dispatcher's goroutine.
type Callback[T any] interface {
	OnSuccess(value T)
	OnError(err error)
}

type funcCallback[T any] struct {
	onSuccess func(T)
	onError   func(error)
}

func (c funcCallback[T]) OnSuccess(value T) {
	if c.onSuccess != nil {
		c.onSuccess(value)
	}
}

func (c funcCallback[T]) OnError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

// NewCallback builds a Callback from functions. Either may be nil.
func NewCallback[T any](onSuccess func(T), onError func(error)) Callback[T] {
	return funcCallback[T]{onSuccess: onSuccess, onError: onError}
}

// Future is a Callback that can be waited on.
//
//	future := httpcall.NewFuture[string]()
//	if err := call.Enqueue(ctx, future); err != nil {
//	    return err
//	}
//	version, err := future.Wait(ctx)
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewFuture returns an incomplete Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// OnSuccess implements Callback.
func (f *Future[T]) OnSuccess(value T) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

// OnError implements Callback.
func (f *Future[T]) OnError(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the outcome is known.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the outcome is known or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
