package ev

import "time"

// Callback is invoked exactly once when a registration fires. One-shot
// registrations are removed before invocation; level/edge registrations
// stay armed until explicitly removed.
type Callback func()

// System is the interface the Scheduler builds on: a readiness notifier
// over OS handles. The production implementation (Epoll on linux) wraps
// epoll; tests may substitute a fake that satisfies the same contract.
type System interface {
	// Add arms handle for the given mask, invoking callback when it
	// fires. Fails with AlreadyExists if handle is already registered.
	Add(handle Handle, mask Mask, callback Callback) error

	// Remove disarms handle. Fails with InvalidArgument if it isn't
	// registered. After Remove returns, callback is guaranteed never to
	// be invoked again.
	Remove(handle Handle) error

	// Wait blocks until at least one registration fires and returns how
	// many did.
	Wait() (int, error)

	// WaitFor is like Wait but bounded by timeout. Rejects negative
	// durations and durations exceeding the backend's maximum.
	WaitFor(timeout time.Duration) (int, error)

	// TryWait is the non-blocking variant: it returns immediately with
	// whatever had already fired.
	TryWait() (int, error)

	// HasPendingItems reports whether at least one registration is
	// currently armed.
	HasPendingItems() bool

	// PendingItems reports how many registrations are currently armed.
	PendingItems() int

	// Close releases the underlying OS resources. Safe to call once.
	Close() error
}
