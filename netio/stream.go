// Package netio provides the async stream primitives loom's HTTP stack sits
// on: the raw TCP Socket and the growable BufferedReader wrapped around it.
// Every read/write suspends the calling Task through a Scheduler rather than
// blocking the OS thread, following the same (Scheduler, Ctx) calling
// convention co/sched establishes for timers.
package netio

import (
	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
)

// CoStream is the contract any byte source/sink the rest of loom builds on
// must satisfy: Socket and the TLS stream adapter both implement it, and
// BufferedReader and the HTTP layer are written against this interface
// rather than against *Socket directly.
type CoStream interface {
	// Eof reports whether the stream has seen end-of-input and has no
	// buffered bytes left to deliver.
	Eof() bool
	// Good reports whether further reads could still produce bytes —
	// either buffered data is available or the source hasn't hit EOF/error.
	Good() bool

	Read(s *sched.Scheduler, c *co.Ctx, buf []byte) (int, error)
	Write(s *sched.Scheduler, c *co.Ctx, buf []byte) (int, error)
	Close() error
}
