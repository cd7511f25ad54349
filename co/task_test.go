package co_test

import (
	"testing"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/loomerr"
)

func TestTaskLazyStartAndResult(t *testing.T) {
	started := false
	task := co.New(func(c *co.Ctx) (int, error) {
		started = true
		return 42, nil
	})
	if started {
		t.Fatal("task body ran before first Resume")
	}
	if task.Resume() {
		t.Fatal("Resume should report completion for a task that never suspends")
	}
	if !task.Done() {
		t.Fatal("task should be done")
	}
	v, err := task.Get()
	if err != nil || v != 42 {
		t.Fatalf("Get() = %d, %v; want 42, nil", v, err)
	}
}

func TestTaskGetIsSingleUse(t *testing.T) {
	task := co.New(func(c *co.Ctx) (int, error) { return 1, nil })
	task.Resume()
	if _, err := task.Get(); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	_, err := task.Get()
	if loomerr.KindOf(err) != loomerr.FailedPrecondition {
		t.Fatalf("second Get() kind = %v, want FailedPrecondition", loomerr.KindOf(err))
	}
}

func TestTaskSuspendAndResume(t *testing.T) {
	steps := 0
	task := co.New(func(c *co.Ctx) (int, error) {
		steps++
		c.Suspend()
		steps++
		c.Suspend()
		steps++
		return steps, nil
	})

	if !task.Resume() {
		t.Fatal("expected task to still be pending after first suspend")
	}
	if steps != 1 {
		t.Fatalf("steps = %d, want 1", steps)
	}
	if !task.Resume() {
		t.Fatal("expected task to still be pending after second suspend")
	}
	if task.Resume() {
		t.Fatal("expected task to be done on third resume")
	}
	v, err := task.Get()
	if err != nil || v != 3 {
		t.Fatalf("Get() = %d, %v; want 3, nil", v, err)
	}
}

func TestTaskErrorPropagatesThroughGet(t *testing.T) {
	want := loomerr.New(loomerr.NotFound, "missing")
	task := co.New(func(c *co.Ctx) (int, error) { return 0, want })
	task.Resume()
	_, err := task.Get()
	if loomerr.KindOf(err) != loomerr.NotFound {
		t.Fatalf("kind = %v, want NotFound", loomerr.KindOf(err))
	}
}

func TestTaskPanicCapturedAsError(t *testing.T) {
	task := co.New(func(c *co.Ctx) (int, error) {
		panic("boom")
	})
	task.Resume()
	_, err := task.Get()
	if err == nil {
		t.Fatal("expected panic to surface as an error from Get")
	}
}

func TestTaskCancel(t *testing.T) {
	task := co.New(func(c *co.Ctx) (int, error) { return 1, nil })
	task.Cancel()
	if task.Resume() {
		t.Fatal("Resume on a cancelled task should report no further work")
	}
}

func TestTaskOnDoneFiresOnceComplete(t *testing.T) {
	task := co.New(func(c *co.Ctx) (int, error) { return 7, nil })
	fired := false
	task.Resume()
	task.OnDone(func() { fired = true })
	if !fired {
		t.Fatal("OnDone registered after completion should fire immediately")
	}
}
