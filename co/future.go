package co

import (
	"sync"
	"sync/atomic"

	"github.com/matgreaves/loom/loomerr"
)

// Future is a one-shot, possibly-not-yet-available value shared between a
// Promise writer and one or more readers. A completed Future never
// uncompletes.
type Future[T any] struct {
	mu         sync.Mutex
	done       bool
	value      T
	err        error
	onComplete []func()
}

// Ready (await_ready) reports whether the future has already completed.
func (f *Future[T]) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// OnComplete registers fn to run once f completes, or immediately (on the
// calling goroutine) if it already has.
func (f *Future[T]) OnComplete(fn func()) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		fn()
		return
	}
	f.onComplete = append(f.onComplete, fn)
	f.mu.Unlock()
}

// Result (await_resume) returns the completed value or error. Calling it
// before completion returns the zero value and a nil error; callers
// should gate on Ready or go through Await.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

func (f *Future[T]) complete(value T, err error) bool {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return false
	}
	f.done = true
	f.value = value
	f.err = err
	cbs := f.onComplete
	f.onComplete = nil
	f.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
	return true
}

// Promise is the write side of a Future[T]. Exactly one of SetValue /
// SetException may succeed; later calls return a FailedPrecondition error.
type Promise[T any] struct {
	f    *Future[T]
	done atomic.Bool
}

// NewPromise returns a fresh Promise/Future pair.
func NewPromise[T any]() (*Promise[T], *Future[T]) {
	f := &Future[T]{}
	return &Promise[T]{f: f}, f
}

// SetValue completes the paired Future with value.
func (p *Promise[T]) SetValue(value T) error {
	if !p.done.CompareAndSwap(false, true) {
		return loomerr.New(loomerr.FailedPrecondition, "promise already completed")
	}
	p.f.complete(value, nil)
	return nil
}

// SetException completes the paired Future with err.
func (p *Promise[T]) SetException(err error) error {
	if !p.done.CompareAndSwap(false, true) {
		return loomerr.New(loomerr.FailedPrecondition, "promise already completed")
	}
	var zero T
	p.f.complete(zero, err)
	return nil
}

// Resolved returns an already-completed Future holding value.
func Resolved[T any](value T) *Future[T] {
	return &Future[T]{done: true, value: value}
}

// Rejected returns an already-completed Future holding err.
func Rejected[T any](err error) *Future[T] {
	var zero T
	return &Future[T]{done: true, value: zero, err: err}
}

// Await suspends the calling task until f completes, then returns its
// result. Must be called from within a running Task's body, passing that
// body's Ctx.
func Await[T any](c *Ctx, f *Future[T]) (T, error) {
	if f.Ready() {
		return f.Result()
	}
	f.OnComplete(c.Trigger())
	c.Suspend()
	return f.Result()
}
