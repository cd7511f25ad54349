//go:build linux

// Package sched turns co's suspendable Task/Future primitives into a
// runnable event loop: a bounded ready queue of resumable steps, backed by
// an ev.System for readiness-driven resumption. Schedulers are per-OS-thread
// singletons — ThisThread/ForThread are keyed by the real OS thread id
// rather than a language-level thread-local, since a goroutine has no
// stable identity of its own until it pins itself with
// runtime.LockOSThread.
package sched

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/ev"
	"github.com/matgreaves/loom/loomerr"
)

var (
	registryMu sync.Mutex
	registry   = map[int]*Scheduler{}
)

// Resumable is any task-shaped value a Scheduler can drive: a concrete
// *co.Task[T] satisfies it for every T.
type Resumable interface {
	Resume() bool
	SetTrigger(fn func())
	Done() bool
}

// defaultReadyCap bounds the ready queue; a Scheduler enqueuing past this
// many pending steps returns ResourceExhausted rather than growing without
// limit.
const defaultReadyCap = 4096

// Scheduler drains a FIFO of ready task-steps and, once empty, blocks on its
// ev.System until OS readiness (or an external thread-adapter submission)
// produces more work. Exactly one Scheduler may be constructed per OS
// thread; callers that intend to use ThisThread/ForThread must first pin
// themselves to their OS thread with runtime.LockOSThread.
type Scheduler struct {
	tid int
	sys ev.System

	mu       sync.Mutex
	ready    []func()
	readyCap int
	stopped  bool

	extMu       sync.Mutex
	extQueue    []func()
	external    atomic.Int64
	wakeReadFd  int
	wakeWriteFd int
}

// New constructs a Scheduler for the calling OS thread and registers it so
// later ThisThread calls on the same thread return it. Constructing a
// second Scheduler on a thread that already has one is a precondition
// failure.
func New() (*Scheduler, error) {
	tid := unix.Gettid()

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[tid]; ok {
		return nil, loomerr.New(loomerr.FailedPrecondition,
			"a Scheduler already exists for OS thread %d", tid)
	}

	sys, err := ev.NewEpoll()
	if err != nil {
		return nil, err
	}

	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK); err != nil {
		sys.Close()
		return nil, loomerr.Wrap(loomerr.Internal, "pipe2", err)
	}

	s := &Scheduler{
		tid:         tid,
		sys:         sys,
		readyCap:    defaultReadyCap,
		wakeReadFd:  fds[0],
		wakeWriteFd: fds[1],
	}
	if err := sys.Add(ev.Handle(fds[0]), ev.Readable, s.drainWake); err != nil {
		sys.Close()
		return nil, err
	}

	registry[tid] = s
	return s, nil
}

// ThisThread returns the calling OS thread's Scheduler, lazily constructing
// one on first use.
func ThisThread() (*Scheduler, error) {
	tid := unix.Gettid()

	registryMu.Lock()
	if s, ok := registry[tid]; ok {
		registryMu.Unlock()
		return s, nil
	}
	registryMu.Unlock()

	return New()
}

// ForThread looks up a previously constructed Scheduler by OS thread id,
// failing with NotFound if that thread never built one.
func ForThread(tid int) (*Scheduler, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[tid]
	if !ok {
		return nil, loomerr.New(loomerr.NotFound, "no Scheduler registered for OS thread %d", tid)
	}
	return s, nil
}

// ThreadID returns the OS thread id this Scheduler is bound to.
func (s *Scheduler) ThreadID() int { return s.tid }

func (s *Scheduler) enqueue(step func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	// Spawn/Schedule reject new work once the queue is at capacity; a
	// trigger firing for an already-spawned task must still be allowed
	// through so in-flight work can complete.
	s.ready = append(s.ready, step)
}

// Spawn wires t's resumption trigger to this Scheduler and enqueues its
// first step. Returns ResourceExhausted if the ready queue is already at
// capacity.
func (s *Scheduler) Spawn(t Resumable) error {
	s.mu.Lock()
	if len(s.ready) >= s.readyCap {
		s.mu.Unlock()
		return loomerr.New(loomerr.ResourceExhausted, "scheduler ready queue is full (cap %d)", s.readyCap)
	}
	s.mu.Unlock()

	t.SetTrigger(func() { s.enqueue(func() { t.Resume() }) })
	s.enqueue(func() { t.Resume() })
	return nil
}

// Schedule arranges for t to be spawned once, and additionally resumed
// whenever handle becomes ready per mask — used for tasks whose first
// suspension point waits on a raw OS handle rather than a Future. The
// registration stays armed; per-wait one-shot suspension is WaitHandle.
func (s *Scheduler) Schedule(handle ev.Handle, mask ev.Mask, t Resumable) error {
	if err := s.Spawn(t); err != nil {
		return err
	}
	return s.sys.Add(handle, mask, func() { s.enqueue(func() { t.Resume() }) })
}

// NextTick suspends the calling task and re-enqueues it at the back of the
// ready queue, yielding to any other already-ready work for one tick.
func NextTick(c *co.Ctx) {
	c.Trigger()()
	c.Suspend()
}

// WaitHandle suspends the calling task until handle becomes ready per mask,
// then returns. The registration is one-shot: it fires at most once and is
// gone afterward, matching the single suspend-point-per-wait discipline
// every other suspension helper in this package follows. Used by netio's
// Socket for the read/write/accept/connect suspension points, which wait
// on a raw fd's readiness rather than a Future.
func WaitHandle(s *Scheduler, c *co.Ctx, handle ev.Handle, mask ev.Mask) error {
	fired := false
	if err := s.sys.Add(handle, mask.Union(ev.OneShot), func() {
		fired = true
		c.Trigger()()
	}); err != nil {
		return err
	}
	c.SuspendUntil(func() bool { return fired })
	return nil
}

// Run drains the ready queue and blocks on the event system for more work
// until Stop is called, or the event system has nothing left registered
// and the queue is empty. Once stopped, Run returns after the step in
// progress without running the steps still queued.
func (s *Scheduler) Run() error {
	for {
		for {
			s.mu.Lock()
			if s.stopped || len(s.ready) == 0 {
				s.mu.Unlock()
				break
			}
			step := s.ready[0]
			s.ready = s.ready[1:]
			s.mu.Unlock()
			step()
		}

		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			// Resumes still queued past this point are dropped.
			return nil
		}
		// The wake pipe is always armed, so it alone doesn't count as
		// pending work; an in-flight Go bridge call does, even though its
		// only registration is that same wake pipe.
		if s.sys.PendingItems() <= 1 && s.external.Load() == 0 {
			return nil
		}
		if _, err := s.sys.Wait(); err != nil {
			return err
		}
	}
}

// Stop prevents further work from being enqueued. A step already in flight
// runs to its next suspension point; Run then returns and drops any steps
// still queued. Safe to call from another goroutine: the wake pipe
// nudges a Run blocked inside Wait.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	unix.Write(s.wakeWriteFd, []byte{0})
}

// Close releases the Scheduler's event system and wake pipe, and removes it
// from the thread registry. Call after Run returns.
func (s *Scheduler) Close() error {
	registryMu.Lock()
	if registry[s.tid] == s {
		delete(registry, s.tid)
	}
	registryMu.Unlock()

	unix.Close(s.wakeReadFd)
	unix.Close(s.wakeWriteFd)
	return s.sys.Close()
}

// submitExternal queues fn to run on s's own goroutine and wakes Run via the
// self-pipe if it's currently blocked in Wait. This is the thread-adapter
// primitive: work started on a helper goroutine reports its result back
// through here rather than touching the Scheduler's state directly.
func (s *Scheduler) submitExternal(fn func()) {
	s.extMu.Lock()
	s.extQueue = append(s.extQueue, fn)
	s.extMu.Unlock()
	unix.Write(s.wakeWriteFd, []byte{0})
}

func (s *Scheduler) drainWake() {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(s.wakeReadFd, buf)
		if n <= 0 || err != nil {
			break
		}
	}
	s.extMu.Lock()
	fns := s.extQueue
	s.extQueue = nil
	s.extMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Go runs fn on a dedicated goroutine and returns a Future that resolves on
// s's own goroutine once fn completes. This is the bridge used anywhere a
// blocking, non-cancellable call (a DNS lookup, a crypto/tls handshake on a
// net.Pipe) needs to sit underneath the cooperative scheduler without
// stalling every other task sharing its thread.
func Go[T any](s *Scheduler, fn func() (T, error)) *co.Future[T] {
	p, f := co.NewPromise[T]()
	s.external.Add(1)
	go func() {
		v, err := fn()
		s.submitExternal(func() {
			defer s.external.Add(-1)
			if err != nil {
				p.SetException(err)
			} else {
				p.SetValue(v)
			}
		})
	}()
	return f
}
