package httpcall

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Call is a single logical operation against the backend. It runs at most
// once, either synchronously with Execute or asynchronously with Enqueue.
// Clone yields a fresh, idle copy; that is the only way to run it again.
type Call[T any] interface {
	// Execute sends the request and blocks until the converted result or a
	// classified error is available. An empty body yields the zero value.
	Execute(ctx context.Context) (T, error)

	// Enqueue schedules the exchange and returns without waiting for it.
	// Exactly one callback method is invoked, on the dispatcher's goroutine.
	// Errors returned by Enqueue itself are never delivered to cb.
	Enqueue(ctx context.Context, cb Callback[T]) error

	// Clone returns a new idle call with a deep copy of the request and the
	// same converter and name.
	Clone() Call[T]

	// Name is the human-readable operation name used in logs, metrics and
	// error messages.
	Name() string

	// Request returns a copy of the request this call sends.
	Request() *Request
}

// HTTPCall is the Call implementation backed by a Factory.
type HTTPCall[T any] struct {
	factory   *Factory
	request   *Request
	converter BodyConverter[T]
	name      string

	executed atomic.Bool
}

var _ Call[struct{}] = (*HTTPCall[struct{}])(nil)

// NewCall creates an idle call. The request is copied, so later changes to
// req do not affect the call.
//
// Example:
//
//	call := httpcall.NewCall(factory,
//	    httpcall.Put("/zipkin-span-2024-01-01").Body(mapping),
//	    httpcall.Discard[struct{}](),
//	    "create-index",
//	)
//	if _, err := call.Execute(ctx); err != nil {
//	    return err
//	}
//
// NewCall panics if f, req or conv is nil.
func NewCall[T any](f *Factory, req *Request, conv BodyConverter[T], name string) *HTTPCall[T] {
	if f == nil || req == nil || conv == nil {
		panic("httpcall: NewCall requires a factory, a request and a converter")
	}
	return &HTTPCall[T]{
		factory:   f,
		request:   req.Clone(),
		converter: conv,
		name:      name,
	}
}

// Name implements Call.
func (c *HTTPCall[T]) Name() string {
	return c.name
}

// Request implements Call.
func (c *HTTPCall[T]) Request() *Request {
	return c.request.Clone()
}

// Clone implements Call. The clone never observes the original's state.
func (c *HTTPCall[T]) Clone() Call[T] {
	return &HTTPCall[T]{
		factory:   c.factory,
		request:   c.request.Clone(),
		converter: c.converter,
		name:      c.name,
	}
}

// Execute implements Call.
func (c *HTTPCall[T]) Execute(ctx context.Context) (T, error) {
	if err := c.start(); err != nil {
		var zero T
		return zero, err
	}
	return c.run(ctx)
}

// Enqueue implements Call.
//
// If the dispatcher refuses the task (for example a saturated
// BoundedDispatcher whose ctx expires), that error is returned and the call
// stays consumed.
func (c *HTTPCall[T]) Enqueue(ctx context.Context, cb Callback[T]) error {
	if cb == nil {
		return errors.New("httpcall: nil callback")
	}
	if err := c.start(); err != nil {
		return err
	}

	task := func() {
		value, err := c.run(ctx)
		if err != nil {
			cb.OnError(err)
			return
		}
		cb.OnSuccess(value)
	}
	if err := c.factory.dispatcher.Dispatch(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", c.name, err)
	}
	return nil
}

// start moves the call out of the idle state. Exactly one caller wins.
func (c *HTTPCall[T]) start() error {
	if c.executed.CompareAndSwap(false, true) {
		return nil
	}
	c.factory.logger.Warn().
		Str("call", c.name).
		Msg("call already executed, clone it to run again")
	return fmt.Errorf("%w: %s", ErrAlreadyExecuted, c.name)
}

// run sends and converts. A fatal converter panic unwinds through it without
// recording a metric sample.
func (c *HTTPCall[T]) run(ctx context.Context) (T, error) {
	began := time.Now()

	resp, err := c.factory.send(ctx, c.request, c.name)
	if err != nil {
		c.factory.metrics.observe(c.name, began, err)
		var zero T
		return zero, err
	}

	value, err := c.convert(resp.Body)
	c.factory.metrics.observe(c.name, began, err)
	return value, err
}

// convert applies the converter. Ordinary failures, including panics with an
// error value, become a *ConversionError. Fatal faults keep unwinding the
// current goroutine after being logged.
func (c *HTTPCall[T]) convert(content []byte) (value T, err error) {
	if len(content) == 0 {
		return value, nil
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if isFatal(r) {
			c.factory.logger.Error().
				Interface("panic", r).
				Str("call", c.name).
				Str("stack", string(debug.Stack())).
				Msg("fatal fault in body converter")
			panic(r)
		}
		var zero T
		value, err = zero, &ConversionError{Name: c.name, Err: r.(error)}
	}()

	value, err = c.converter(content)
	if err != nil {
		if isFatal(err) {
			panic(err)
		}
		var zero T
		return zero, &ConversionError{Name: c.name, Err: err}
	}
	return value, nil
}
