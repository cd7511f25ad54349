//go:build linux

package ev

import (
	"math"
	"time"

	"golang.org/x/sys/unix"

	"github.com/matgreaves/loom/loomerr"
)

// eventBufferSize is how many ready events epoll_wait is asked to report
// per call.
const eventBufferSize = 32

type registration struct {
	callback Callback
	oneShot  bool
}

// Epoll is the production System, backed by Linux epoll(7).
type Epoll struct {
	fd    int
	regs  map[Handle]*registration
	closed bool
}

// NewEpoll creates a new epoll instance.
func NewEpoll() (*Epoll, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, loomerr.Wrap(loomerr.Internal, "epoll_create1", err)
	}
	return &Epoll{fd: fd, regs: make(map[Handle]*registration)}, nil
}

func toEpollEvents(m Mask) uint32 {
	var out uint32
	if m.Has(Readable) {
		out |= unix.EPOLLIN
	}
	if m.Has(Writable) {
		out |= unix.EPOLLOUT
	}
	if m.Has(ReadClosed) {
		out |= unix.EPOLLRDHUP
	}
	if m.Has(PeerClosed) {
		out |= unix.EPOLLHUP
	}
	if m.Has(Priority) {
		out |= unix.EPOLLPRI
	}
	if m.Has(Error) {
		out |= unix.EPOLLERR
	}
	if m.Has(EdgeTrigger) {
		out |= unix.EPOLLET
	}
	if m.Has(OneShot) {
		out |= unix.EPOLLONESHOT
	}
	if m.Has(WakeUp) {
		out |= unix.EPOLLWAKEUP
	}
	if m.Has(Exclusive) {
		out |= unix.EPOLLEXCLUSIVE
	}
	return uint32(out)
}

func (e *Epoll) Add(handle Handle, mask Mask, callback Callback) error {
	if _, ok := e.regs[handle]; ok {
		return loomerr.New(loomerr.AlreadyExists, "handle %d already registered with epoll", handle)
	}
	ev := unix.EpollEvent{Events: toEpollEvents(mask), Fd: int32(handle)}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, int(handle), &ev); err != nil {
		return loomerr.Wrap(loomerr.Internal, "epoll_ctl(ADD)", err)
	}
	e.regs[handle] = &registration{callback: callback, oneShot: mask.Has(OneShot)}
	return nil
}

func (e *Epoll) Remove(handle Handle) error {
	if _, ok := e.regs[handle]; !ok {
		return loomerr.New(loomerr.InvalidArgument, "handle %d not registered with epoll", handle)
	}
	delete(e.regs, handle)
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, int(handle), nil); err != nil {
		return loomerr.Wrap(loomerr.Internal, "epoll_ctl(DEL)", err)
	}
	return nil
}

func (e *Epoll) HasPendingItems() bool {
	return len(e.regs) > 0
}

func (e *Epoll) PendingItems() int {
	return len(e.regs)
}

func (e *Epoll) Wait() (int, error) {
	return e.wait(-1)
}

func (e *Epoll) WaitFor(timeout time.Duration) (int, error) {
	if timeout < 0 {
		return 0, loomerr.New(loomerr.InvalidArgument, "timeout must be a non-negative duration")
	}
	ms := timeout.Milliseconds()
	if ms > math.MaxInt32 {
		return 0, loomerr.New(loomerr.InvalidArgument, "timeout exceeds epoll_wait's maximum of %dms", math.MaxInt32)
	}
	return e.wait(int(ms))
}

func (e *Epoll) TryWait() (int, error) {
	return e.wait(0)
}

func (e *Epoll) wait(timeoutMs int) (int, error) {
	events := make([]unix.EpollEvent, eventBufferSize)
	n, err := unix.EpollWait(e.fd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, loomerr.Wrap(loomerr.Internal, "epoll_wait", err)
	}

	var firstErr error
	for i := 0; i < n; i++ {
		handle := Handle(events[i].Fd)
		reg, ok := e.regs[handle]
		if !ok {
			continue // registration was removed between wait() returning and us processing it
		}
		if reg.oneShot {
			delete(e.regs, handle)
			unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, int(handle), nil)
		}
		if err := callSafely(reg.callback); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return n, loomerr.Wrap(loomerr.Internal, "callback escaped wait()", firstErr)
	}
	return n, nil
}

func (e *Epoll) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return unix.Close(e.fd)
}
