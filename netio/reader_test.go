package netio_test

import (
	"testing"

	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/loomerr"
	"github.com/matgreaves/loom/netio"
)

// stringStream is a duplex CoStream backed by an in-memory byte slice,
// only useful for tests.
type stringStream struct {
	in    []byte
	pos   int
	out   []byte
	chunk int
}

func newStringStream(in string, chunk int) *stringStream {
	return &stringStream{in: []byte(in), chunk: chunk}
}

func (s *stringStream) Eof() bool  { return s.pos >= len(s.in) }
func (s *stringStream) Good() bool { return !s.Eof() }

func (s *stringStream) Read(_ *sched.Scheduler, _ *co.Ctx, buf []byte) (int, error) {
	n := len(buf)
	if remaining := len(s.in) - s.pos; remaining < n {
		n = remaining
	}
	if s.chunk > 0 && n > s.chunk {
		n = s.chunk
	}
	copy(buf, s.in[s.pos:s.pos+n])
	s.pos += n
	return n, nil
}

func (s *stringStream) Write(_ *sched.Scheduler, _ *co.Ctx, buf []byte) (int, error) {
	s.out = append(s.out, buf...)
	return len(buf), nil
}

func (s *stringStream) Close() error { s.in = nil; return nil }

// drive runs body to completion without a real Scheduler, since
// stringStream never actually suspends on OS readiness — reads are
// synchronous, so the Task never needs an event-driven resume.
func drive[T any](t *testing.T, body func(*co.Ctx) (T, error)) (T, error) {
	t.Helper()
	task := co.New(body)
	for task.Resume() {
	}
	return task.Get()
}

func TestReadReturnsRequestedBytes(t *testing.T) {
	src := newStringStream("hello world", 0)
	r := netio.NewBufferedReader(src)

	got, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.Read(nil, c, 5)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestReadGrowsAcrossMultipleUnderlyingChunks(t *testing.T) {
	src := newStringStream("abcdefghij", 2)
	r := netio.NewBufferedReader(src)

	got, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.Read(nil, c, 10)
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "abcdefghij" {
		t.Fatalf("got %q, want %q", got, "abcdefghij")
	}
}

func TestReadUntilByteReturnsMatchedPrefixIncludingDelimiter(t *testing.T) {
	src := newStringStream("GET / HTTP/1.1\r\nHost: x\r\n\r\n", 4)
	r := netio.NewBufferedReader(src)

	got, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.ReadUntilByte(nil, c, '\n', 0)
	})
	if err != nil {
		t.Fatalf("ReadUntilByte: %v", err)
	}
	if string(got) != "GET / HTTP/1.1\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReadUntilStringMatchesMultiByteDelimiter(t *testing.T) {
	src := newStringStream("header: value\r\n\r\nbody", 3)
	r := netio.NewBufferedReader(src)

	got, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.ReadUntilString(nil, c, []byte("\r\n\r\n"), 0)
	})
	if err != nil {
		t.Fatalf("ReadUntilString: %v", err)
	}
	if string(got) != "header: value\r\n\r\n" {
		t.Fatalf("got %q", got)
	}
}

func TestReadUntilReturnsEmptyOnEOFBeforeDelimiter(t *testing.T) {
	src := newStringStream("no newline here", 0)
	r := netio.NewBufferedReader(src)

	got, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.ReadUntilByte(nil, c, '\n', 0)
	})
	if err != nil {
		t.Fatalf("ReadUntilByte: %v", err)
	}
	if got != nil {
		t.Fatalf("got %q, want nil", got)
	}
}

func TestReadUntilFailsResourceExhaustedWhenLimitReachedWithoutMatch(t *testing.T) {
	src := newStringStream("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n", 0)
	r := netio.NewBufferedReader(src)

	_, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.ReadUntilByte(nil, c, '\n', 8)
	})
	if loomerr.KindOf(err) != loomerr.ResourceExhausted {
		t.Fatalf("kind = %v, want ResourceExhausted", loomerr.KindOf(err))
	}
}

func TestReadNeverDropsUnconsumedBytes(t *testing.T) {
	src := newStringStream("1234567890", 3)
	r := netio.NewBufferedReader(src)

	first, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.Read(nil, c, 4)
	})
	if err != nil {
		t.Fatalf("Read 1: %v", err)
	}
	second, err := drive(t, func(c *co.Ctx) ([]byte, error) {
		return r.Read(nil, c, 6)
	})
	if err != nil {
		t.Fatalf("Read 2: %v", err)
	}
	if string(first)+string(second) != "1234567890" {
		t.Fatalf("got %q + %q, want no dropped bytes", first, second)
	}
}
