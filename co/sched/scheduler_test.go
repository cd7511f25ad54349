//go:build linux

package sched_test

import (
	"runtime"
	"testing"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/loomerr"
)

func newScheduler(t *testing.T) *sched.Scheduler {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)

	s, err := sched.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewTwiceOnSameThreadFailsPrecondition(t *testing.T) {
	s := newScheduler(t)
	defer s.Stop()

	_, err := sched.New()
	if loomerr.KindOf(err) != loomerr.FailedPrecondition {
		t.Fatalf("kind = %v, want FailedPrecondition", loomerr.KindOf(err))
	}
	if _, err := sched.ThisThread(); err != nil {
		t.Fatalf("ThisThread should return the existing Scheduler: %v", err)
	}
}

func TestForThreadUnknownIsNotFound(t *testing.T) {
	_, err := sched.ForThread(-1)
	if loomerr.KindOf(err) != loomerr.NotFound {
		t.Fatalf("kind = %v, want NotFound", loomerr.KindOf(err))
	}
}

func TestSpawnRunsTaskToCompletion(t *testing.T) {
	s := newScheduler(t)

	task := co.New(func(c *co.Ctx) (int, error) {
		return 7, nil
	})
	if err := s.Spawn(task); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	task.OnDone(func() { s.Stop() })

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, err := task.Get()
	if err != nil || v != 7 {
		t.Fatalf("Get() = %d, %v; want 7, nil", v, err)
	}
}

func TestNextTickYieldsToOtherReadyWork(t *testing.T) {
	s := newScheduler(t)

	var order []string
	first := co.New(func(c *co.Ctx) (struct{}, error) {
		order = append(order, "first-a")
		sched.NextTick(c)
		order = append(order, "first-b")
		return struct{}{}, nil
	})
	second := co.New(func(c *co.Ctx) (struct{}, error) {
		order = append(order, "second")
		return struct{}{}, nil
	})

	if err := s.Spawn(first); err != nil {
		t.Fatalf("Spawn first: %v", err)
	}
	if err := s.Spawn(second); err != nil {
		t.Fatalf("Spawn second: %v", err)
	}
	var done int
	stopWhenBothDone := func() {
		done++
		if done == 2 {
			s.Stop()
		}
	}
	first.OnDone(stopWhenBothDone)
	second.OnDone(stopWhenBothDone)

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"first-a", "second", "first-b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestGoBridgesExternalWorkBackOntoSchedulerGoroutine(t *testing.T) {
	s := newScheduler(t)

	task := co.New(func(c *co.Ctx) (int, error) {
		f := sched.Go(s, func() (int, error) { return 42, nil })
		return co.Await(c, f)
	})
	if err := s.Spawn(task); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	task.OnDone(func() { s.Stop() })

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, err := task.Get()
	if err != nil || v != 42 {
		t.Fatalf("Get() = %d, %v; want 42, nil", v, err)
	}
}

func TestSpawnRejectsPastCapacity(t *testing.T) {
	s := newScheduler(t)
	defer s.Stop()

	stuck := co.New(func(c *co.Ctx) (struct{}, error) {
		c.Suspend()
		return struct{}{}, nil
	})
	if err := s.Spawn(stuck); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	// The parked task's first step already holds one ready-queue slot;
	// flood the rest of the ready queue with no-op tasks until the
	// configured cap is hit.
	for i := 0; i < 4096; i++ {
		noop := co.New(func(c *co.Ctx) (struct{}, error) { return struct{}{}, nil })
		if err := s.Spawn(noop); err != nil {
			if loomerr.KindOf(err) == loomerr.ResourceExhausted {
				return
			}
			t.Fatalf("Spawn #%d: %v", i, err)
		}
	}
	t.Fatal("expected ResourceExhausted before exhausting the loop")
}
