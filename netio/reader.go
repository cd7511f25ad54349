package netio

import (
	"github.com/matgreaves/loom/co"
	"github.com/matgreaves/loom/co/sched"
	"github.com/matgreaves/loom/loomerr"
)

const (
	initialReadBufferSize = 1024 * 1024
	// maximumReadBufferSize caps buffer growth; exceeding it is
	// ResourceExhausted, never a larger allocation.
	maximumReadBufferSize = 1024 * 1024 * 1024
	// readBlockSize is the default scan limit for the ReadUntil variants
	// when the caller passes 0.
	readBlockSize = 1024 * 10
)

// BufferedReader wraps any CoStream with a growable backing buffer split
// into a read window (unconsumed bytes) and a write window (free space),
// providing Read(n) and delimiter-bounded ReadUntil variants.
type BufferedReader struct {
	source CoStream

	buf        []byte // the full backing allocation
	readStart  int    // start of the unconsumed read window within buf
	readEnd    int    // end of the unconsumed read window within buf
	writeStart int     // start of free space available for the next load
}

// NewBufferedReader wraps source with a backing buffer seeded at
// initialReadBufferSize.
func NewBufferedReader(source CoStream) *BufferedReader {
	return &BufferedReader{
		source: source,
		buf:    make([]byte, initialReadBufferSize),
	}
}

// Eof reports that no buffered bytes remain and the source is done.
func (r *BufferedReader) Eof() bool {
	return r.readWindowLen() == 0 && r.source.Eof()
}

// Good reports that either buffered bytes remain, or the source could
// still produce more.
func (r *BufferedReader) Good() bool {
	return r.readWindowLen() > 0 || r.source.Good()
}

func (r *BufferedReader) readWindowLen() int { return r.readEnd - r.readStart }
func (r *BufferedReader) writeWindowLen() int { return len(r.buf) - r.writeStart }

// Read returns up to n bytes, growing the internal buffer (doubling, bounded
// by maximumReadBufferSize) when the write window is too small to satisfy
// the request.
func (r *BufferedReader) Read(s *sched.Scheduler, c *co.Ctx, n int) ([]byte, error) {
	for r.readWindowLen() < n && r.source.Good() {
		if err := r.loadBuffer(s, c, n-r.readWindowLen()); err != nil {
			return nil, err
		}
	}
	take := n
	if avail := r.readWindowLen(); avail < take {
		take = avail
	}
	result := make([]byte, take)
	copy(result, r.buf[r.readStart:r.readStart+take])
	r.readStart += take
	return result, nil
}

// ReadUntilByte reads until delim is seen or limit bytes have been scanned,
// returning the matched prefix including the delimiter. If EOF arrives first,
// an empty slice is returned with no error.
func (r *BufferedReader) ReadUntilByte(s *sched.Scheduler, c *co.Ctx, delim byte, limit int) ([]byte, error) {
	if limit == 0 {
		limit = readBlockSize
	}
	for i := 0; i < limit; i++ {
		// A single source read only guarantees one byte moved, so keep
		// loading until the window actually covers position i.
		for i >= r.readWindowLen() {
			if !r.source.Good() {
				return nil, nil
			}
			if err := r.loadBuffer(s, c, limit-i); err != nil {
				return nil, err
			}
		}
		if r.buf[r.readStart+i] == delim {
			result := make([]byte, i+1)
			copy(result, r.buf[r.readStart:r.readStart+i+1])
			r.readStart += i + 1
			return result, nil
		}
	}
	return nil, loomerr.New(loomerr.ResourceExhausted,
		"read_until: delimiter not found within limit of %d bytes", limit)
}

// ReadUntilString is the multi-byte-delimiter sibling of ReadUntilByte.
func (r *BufferedReader) ReadUntilString(s *sched.Scheduler, c *co.Ctx, delim []byte, limit int) ([]byte, error) {
	if limit == 0 {
		limit = readBlockSize
	}
	matched := 0
	for i := 0; i < limit; i++ {
		for i >= r.readWindowLen() {
			if !r.source.Good() {
				return nil, nil
			}
			if err := r.loadBuffer(s, c, limit-i); err != nil {
				return nil, err
			}
		}
		if r.buf[r.readStart+i] == delim[matched] {
			matched++
			if matched == len(delim) {
				result := make([]byte, i+1)
				copy(result, r.buf[r.readStart:r.readStart+i+1])
				r.readStart += i + 1
				return result, nil
			}
		} else if r.buf[r.readStart+i] == delim[0] {
			matched = 1
		} else {
			matched = 0
		}
	}
	return nil, loomerr.New(loomerr.ResourceExhausted,
		"read_until: delimiter not found within limit of %d bytes", limit)
}

// loadBuffer pulls more bytes from the source into the write window,
// growing or sliding the backing buffer first if it doesn't already have
// room for `need` bytes.
func (r *BufferedReader) loadBuffer(s *sched.Scheduler, c *co.Ctx, need int) error {
	if need > r.writeWindowLen() {
		if err := r.adjustBuffers(need); err != nil {
			return err
		}
	}
	n, err := r.source.Read(s, c, r.buf[r.writeStart:r.writeStart+need])
	if err != nil {
		return err
	}
	r.writeStart += n
	r.readEnd += n
	return nil
}

func (r *BufferedReader) adjustBuffers(desiredWriteSize int) error {
	additional := desiredWriteSize - r.writeWindowLen()

	// Room exists before the read window: shift the window to the front
	// instead of reallocating.
	if r.readStart >= additional {
		copy(r.buf, r.buf[r.readStart:r.readEnd])
		length := r.readEnd - r.readStart
		r.readStart = 0
		r.readEnd = length
		r.writeStart = length
		return nil
	}

	desiredTotal := len(r.buf) + additional
	if desiredTotal > maximumReadBufferSize {
		return loomerr.New(loomerr.ResourceExhausted,
			"BufferedReader capped at %d bytes, %d requested", maximumReadBufferSize, desiredTotal)
	}
	newSize := len(r.buf) * 2
	if newSize == 0 {
		newSize = initialReadBufferSize
	}
	for newSize < desiredTotal {
		newSize *= 2
	}
	if newSize > maximumReadBufferSize {
		newSize = maximumReadBufferSize
	}

	newBuf := make([]byte, newSize)
	length := r.readEnd - r.readStart
	copy(newBuf, r.buf[r.readStart:r.readEnd])
	r.buf = newBuf
	r.readStart = 0
	r.readEnd = length
	r.writeStart = length
	return nil
}
