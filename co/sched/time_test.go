//go:build linux

package sched_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
)

func TestSleepForResumesAfterDuration(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s, err := sched.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	start := time.Now()
	task := co.New(func(c *co.Ctx) (struct{}, error) {
		if err := sched.SleepFor(s, c, 20*time.Millisecond); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err := s.Spawn(task); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	task.OnDone(func() { s.Stop() })

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := task.Get(); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("task resumed after %v, want at least 20ms", elapsed)
	}
}

func TestSleepUntilPastResumesImmediately(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s, err := sched.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	task := co.New(func(c *co.Ctx) (struct{}, error) {
		if err := sched.SleepUntil(s, c, time.Now().Add(-time.Hour)); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err := s.Spawn(task); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	task.OnDone(func() { s.Stop() })

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := task.Get(); err != nil {
		t.Fatalf("Get: %v", err)
	}
}
