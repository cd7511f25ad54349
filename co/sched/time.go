//go:build linux

package sched

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/ev"
	"github.com/matgreaves/loom/loomerr"
)

// createTimerfd arms a CLOCK_MONOTONIC timerfd to fire once after d.
func createTimerfd(d time.Duration) (int, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK)
	if err != nil {
		return -1, loomerr.Wrap(loomerr.Internal, "timerfd_create", err)
	}
	if d < 0 {
		d = 0
	}
	spec := unix.ItimerSpec{
		Value: unix.NsecToTimespec(d.Nanoseconds()),
	}
	if spec.Value.Sec == 0 && spec.Value.Nsec == 0 {
		// timerfd_settime treats an all-zero Value as "disarm"; a
		// zero-duration sleep still needs to fire, so round up to the
		// smallest representable interval.
		spec.Value.Nsec = 1
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return -1, loomerr.Wrap(loomerr.Internal, "timerfd_settime", err)
	}
	return fd, nil
}

// SleepFor suspends the calling task for at least d, resuming it once the
// Scheduler's event system observes the backing timerfd fire.
func SleepFor(s *Scheduler, c *co.Ctx, d time.Duration) error {
	fd, err := createTimerfd(d)
	if err != nil {
		return err
	}
	handle := ev.Handle(fd)

	fired := false
	addErr := s.sys.Add(handle, ev.Readable.Union(ev.OneShot), func() {
		fired = true
		c.Trigger()()
	})
	if addErr != nil {
		unix.Close(fd)
		return addErr
	}

	c.SuspendUntil(func() bool { return fired })

	unix.Close(fd)
	return nil
}

// SleepUntil suspends the calling task until t, built atop SleepFor.
func SleepUntil(s *Scheduler, c *co.Ctx, t time.Time) error {
	return SleepFor(s, c, time.Until(t))
}
