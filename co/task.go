// Package co provides the coroutine primitives the rest of loom is built
// from: a suspendable Task[T], a one-shot Future[T]/Promise[T] pair, and
// the Await/All combinators used to compose them. It deliberately knows
// nothing about OS readiness or epoll — that lives in co/ev — or about
// running multiple tasks to completion — that's co/sched. This package
// only has an opinion about what a single suspendable computation looks
// like and how two of them can hand a value to each other.
//
// Go has no native stackful coroutines, so a Task's body runs on its own
// goroutine, parked on a channel rendezvous at every suspension point.
// Resume() is the only thing that ever wakes that goroutine, which is what
// lets a Scheduler (co/sched) guarantee a task only runs when explicitly
// resumed and never preempts another task running on the same thread.
package co

import (
	"fmt"

	"github.com/matgreaves/loom/loomerr"
)

// State mirrors the three states a Task's result can be in.
type State int

const (
	Pending State = iota
	Ready
	Cancelled
)

// Ctx is handed to a Task's body and is the only way the body can suspend
// itself. Suspend blocks the calling goroutine until the owning Scheduler
// calls Resume again.
type Ctx struct {
	resumeC  chan struct{}
	suspendC chan struct{}
	trigger  func()
	nextRdy  func() bool
}

// Suspend parks the task's body until the next Resume call.
func (c *Ctx) Suspend() {
	c.suspendC <- struct{}{}
	<-c.resumeC
}

// SuspendUntil is like Suspend but additionally records a readiness
// predicate the scheduler may poll via Task.Ready before deciding to
// resume — used for time-based waits where resumption doesn't arrive
// through a Future completion callback.
func (c *Ctx) SuspendUntil(ready func() bool) {
	c.nextRdy = ready
	c.Suspend()
}

// Trigger returns the function that arranges for this task to be resumed
// again. Suspension helpers such as Await register it as a Future
// completion callback.
func (c *Ctx) Trigger() func() { return c.trigger }

// Task is a suspendable computation producing a value of type T. The
// zero value is not usable; construct one with New.
type Task[T any] struct {
	body    func(*Ctx) (T, error)
	ctx     *Ctx
	started bool
	doneC   chan struct{}

	state   State
	value   T
	err     error
	valid   bool
	readyFn func() bool
	onDone  []func()
}

// New constructs a Task around body. Execution does not begin until the
// first call to Resume (lazy start, per the Task contract).
func New[T any](body func(*Ctx) (T, error)) *Task[T] {
	return &Task[T]{
		body: body,
		ctx: &Ctx{
			resumeC:  make(chan struct{}),
			suspendC: make(chan struct{}),
		},
		doneC: make(chan struct{}),
		state: Pending,
	}
}

// SetTrigger installs the callback used to request that this task be
// resumed again. A Scheduler calls this exactly once, before the first
// Resume, to wire the task's suspension points back to its ready queue.
func (t *Task[T]) SetTrigger(fn func()) { t.ctx.trigger = fn }

// Done reports whether the task has finished (successfully, with an
// error, or by cancellation).
func (t *Task[T]) Done() bool { return t.state != Pending }

// Ready reports whether the task's current suspension predicate (if any)
// is satisfied. A task with no outstanding readiness predicate is always
// ready.
func (t *Task[T]) Ready() bool {
	if t.readyFn == nil {
		return true
	}
	return t.readyFn()
}

// Resume single-steps the task: it starts the body on first call, or
// wakes it from its current suspension point otherwise, and blocks until
// the body either suspends again or completes. It returns false once the
// task is Done. Resume must only be called by the scheduler that owns
// this task.
func (t *Task[T]) Resume() bool {
	if t.state != Pending {
		return false
	}

	if !t.started {
		t.started = true
		go t.run()
	} else {
		t.ctx.resumeC <- struct{}{}
	}

	select {
	case <-t.ctx.suspendC:
		t.readyFn = t.ctx.nextRdy
		t.ctx.nextRdy = nil
		return true
	case <-t.doneC:
		t.state = Ready
		t.valid = true
		cbs := t.onDone
		t.onDone = nil
		for _, cb := range cbs {
			cb()
		}
		return false
	}
}

// OnDone registers fn to run once the task completes, or immediately if
// it already has. Used by combinators (All, AllVoid) to let one task
// await another without calling Resume itself, which only the owning
// scheduler may do.
func (t *Task[T]) OnDone(fn func()) {
	if t.Done() {
		fn()
		return
	}
	t.onDone = append(t.onDone, fn)
}

func (t *Task[T]) run() {
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("task panicked: %v", r)
		}
		close(t.doneC)
	}()
	t.value, t.err = t.body(t.ctx)
}

// Get extracts the task's value or rethrows its error. Valid exactly
// once after Done() becomes true; a second call raises
// FailedPrecondition.
func (t *Task[T]) Get() (T, error) {
	if !t.valid {
		var zero T
		return zero, loomerr.New(loomerr.FailedPrecondition,
			"Task.Get called before completion, or more than once")
	}
	t.valid = false
	if t.err != nil {
		err := t.err
		return t.value, err
	}
	return t.value, nil
}

// Cancel marks the task Cancelled without running it further. Resume
// becomes a no-op afterward.
func (t *Task[T]) Cancel() {
	if t.state == Pending {
		t.state = Cancelled
	}
}
