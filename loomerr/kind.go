// Package loomerr defines the canonical error taxonomy shared by every
// layer of loom: the event system, scheduler, socket, TLS adapter and HTTP
// router all raise errors of one of these kinds rather than ad-hoc errors,
// so that a caller several layers up (e.g. the HTTP router mapping an error
// to a status code) can make a decision without knowing which layer it
// originated in.
package loomerr

import (
	"errors"
	"fmt"
)

// Kind is one of the canonical error kinds. It never changes shape once a
// value is constructed; the HTTP status mapping in StatusCode is a total
// function over it.
type Kind int

const (
	// Internal is the zero value so an unwrapped error defaults to the
	// least permissive mapping (500) rather than something more lenient.
	Internal Kind = iota
	InvalidArgument
	FailedPrecondition
	NotFound
	AlreadyExists
	PermissionDenied
	Unauthenticated
	OutOfRange
	ResourceExhausted
	Aborted
	Cancelled
	DeadlineExceeded
	Unavailable
	Unimplemented
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case FailedPrecondition:
		return "FailedPrecondition"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case PermissionDenied:
		return "PermissionDenied"
	case Unauthenticated:
		return "Unauthenticated"
	case OutOfRange:
		return "OutOfRange"
	case ResourceExhausted:
		return "ResourceExhausted"
	case Aborted:
		return "Aborted"
	case Cancelled:
		return "Cancelled"
	case DeadlineExceeded:
		return "DeadlineExceeded"
	case Unavailable:
		return "Unavailable"
	case Unimplemented:
		return "Unimplemented"
	default:
		return "Internal"
	}
}

// Error is a canonical-kind error. Construct one with New or Wrap rather
// than a literal, so callers outside this package can't forge a Kind they
// don't mean.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns k's canonical kind.
func (e *Error) Kind() Kind { return e.kind }

// New creates a canonical error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a canonical error of the given kind that wraps err.
// If err is already a canonical Error and kind == Internal, the original
// kind is preserved instead of being downgraded — this lets call sites
// write `return loomerr.Wrap(loomerr.Internal, "...", err)` defensively
// without stomping a more specific kind raised deeper in the stack.
func Wrap(kind Kind, msg string, err error) error {
	if kind == Internal {
		var ce *Error
		if errors.As(err, &ce) {
			kind = ce.kind
		}
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf extracts the canonical Kind carried by err, defaulting to
// Internal for any error that isn't one of ours.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.kind
	}
	return Internal
}

// Is reports whether err carries the given canonical kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
