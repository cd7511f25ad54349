// Package ev is the readiness-notification layer the Scheduler polls: an
// epoll-backed registry of (Handle, Mask, Callback) triples. It knows
// nothing about coroutines — co.Task and co.Future sit a layer above this
// one — only about watching file descriptors and firing callbacks when
// the kernel says they're ready.
package ev

// Handle is an opaque OS descriptor for a byte stream or timer source.
type Handle int

// Mask is a bit set over the readiness conditions a registration can
// watch for. It round-trips losslessly to the underlying epoll
// representation (see toEpollEvents in epoll_linux.go).
type Mask uint32

const (
	Readable Mask = 1 << iota
	Writable
	ReadClosed
	PeerClosed
	Priority
	Error
	EdgeTrigger
	OneShot
	WakeUp
	Exclusive
)

// Has reports whether m contains every bit set in other (intersection
// test).
func (m Mask) Has(other Mask) bool { return m&other == other }

// Union combines masks with bitwise OR.
func (m Mask) Union(other Mask) Mask { return m | other }

// Without removes the bits in other from m.
func (m Mask) Without(other Mask) Mask { return m &^ other }

func (m Mask) String() string {
	names := []struct {
		bit  Mask
		name string
	}{
		{Readable, "READABLE"},
		{Writable, "WRITABLE"},
		{ReadClosed, "READ_CLOSED"},
		{PeerClosed, "PEER_CLOSED"},
		{Priority, "PRIORITY"},
		{Error, "ERROR"},
		{EdgeTrigger, "EDGE_TRIGGER"},
		{OneShot, "ONE_SHOT"},
		{WakeUp, "WAKE_UP"},
		{Exclusive, "EXCLUSIVE"},
	}
	out := ""
	for _, n := range names {
		if m.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "NONE"
	}
	return out
}
