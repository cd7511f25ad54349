package co_test

import (
	"testing"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/loomerr"
)

func TestPromiseSetValueCompletesFuture(t *testing.T) {
	p, f := co.NewPromise[string]()
	if f.Ready() {
		t.Fatal("fresh future should not be ready")
	}
	if err := p.SetValue("hi"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if !f.Ready() {
		t.Fatal("future should be ready after SetValue")
	}
	v, err := f.Result()
	if err != nil || v != "hi" {
		t.Fatalf("Result() = %q, %v; want hi, nil", v, err)
	}
}

func TestPromiseOnlyOneWriterSucceeds(t *testing.T) {
	p, _ := co.NewPromise[int]()
	if err := p.SetValue(1); err != nil {
		t.Fatalf("first SetValue: %v", err)
	}
	err := p.SetException(loomerr.New(loomerr.Internal, "too late"))
	if loomerr.KindOf(err) != loomerr.FailedPrecondition {
		t.Fatalf("second write kind = %v, want FailedPrecondition", loomerr.KindOf(err))
	}
}

func TestOnCompleteFiresImmediatelyIfAlreadyDone(t *testing.T) {
	f := co.Resolved(5)
	fired := false
	f.OnComplete(func() { fired = true })
	if !fired {
		t.Fatal("OnComplete on a completed future should fire synchronously")
	}
}

func TestAwaitSuspendsUntilPromiseSettles(t *testing.T) {
	triggered := false
	p, f := co.NewPromise[int]()
	task := co.New(func(c *co.Ctx) (int, error) {
		return co.Await(c, f)
	})
	task.SetTrigger(func() { triggered = true })

	if !task.Resume() {
		t.Fatal("expected task to suspend awaiting an unresolved future")
	}
	p.SetValue(99)
	if !triggered {
		t.Fatal("expected trigger to fire once the awaited future completed")
	}
	if task.Resume() {
		t.Fatal("task should complete once resumed after its future settled")
	}
	result, err := task.Get()
	if err != nil || result != 99 {
		t.Fatalf("Get() = %d, %v; want 99, nil", result, err)
	}
}

func TestRejectedFutureSurfacesErrorThroughAwait(t *testing.T) {
	f := co.Rejected[int](loomerr.New(loomerr.Unavailable, "down"))
	task := co.New(func(c *co.Ctx) (int, error) {
		return co.Await(c, f)
	})
	task.Resume()
	_, err := task.Get()
	if loomerr.KindOf(err) != loomerr.Unavailable {
		t.Fatalf("kind = %v, want Unavailable", loomerr.KindOf(err))
	}
}
