package tlsio_test

import (
	"sync"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
)

// chanBuf is a minimal async byte queue used to build an in-memory CoStream
// pair for tests: readers suspend via the owning Ctx's trigger until a
// writer pushes bytes or the buffer is closed. Only useful for tests.
type chanBuf struct {
	mu      sync.Mutex
	data    []byte
	waiters []func()
	closed  bool
}

func (b *chanBuf) push(p []byte) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	w := b.waiters
	b.waiters = nil
	b.mu.Unlock()
	for _, fn := range w {
		fn()
	}
}

func (b *chanBuf) closeBuf() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	w := b.waiters
	b.waiters = nil
	b.mu.Unlock()
	for _, fn := range w {
		fn()
	}
}

func (b *chanBuf) read(c *co.Ctx, buf []byte) (int, error) {
	for {
		b.mu.Lock()
		if len(b.data) > 0 {
			n := copy(buf, b.data)
			b.data = b.data[n:]
			b.mu.Unlock()
			return n, nil
		}
		if b.closed {
			b.mu.Unlock()
			return 0, nil
		}
		ready := false
		b.waiters = append(b.waiters, func() {
			ready = true
			c.Trigger()()
		})
		b.mu.Unlock()
		c.SuspendUntil(func() bool { return ready })
	}
}

func (b *chanBuf) hasData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) > 0
}

func (b *chanBuf) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// pairedStream is an in-process CoStream test fixture: two instances
// created by newPairedStreams talk to each other entirely in memory,
// standing in for a netio.Socket pair without touching a real fd.
type pairedStream struct {
	in, out *chanBuf
}

func newPairedStreams() (a, b *pairedStream) {
	ab, ba := &chanBuf{}, &chanBuf{}
	return &pairedStream{in: ba, out: ab}, &pairedStream{in: ab, out: ba}
}

func (p *pairedStream) Read(_ *sched.Scheduler, c *co.Ctx, buf []byte) (int, error) {
	return p.in.read(c, buf)
}

func (p *pairedStream) Write(_ *sched.Scheduler, _ *co.Ctx, buf []byte) (int, error) {
	p.out.push(buf)
	return len(buf), nil
}

func (p *pairedStream) Eof() bool  { return !p.in.hasData() && p.in.isClosed() }
func (p *pairedStream) Good() bool { return p.in.hasData() || !p.in.isClosed() }

func (p *pairedStream) Close() error {
	p.out.closeBuf()
	return nil
}
