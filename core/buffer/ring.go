// File: core/buffer/ring.go
//
// Fixed-capacity byte FIFO with wraparound indices. A single owner mutates
// it; the medium's propagation loop is that owner for every endpoint ring.
//
// Index equality alone cannot distinguish "empty" from "all capacity
// buffered", so the ring carries an explicit occupancy counter. That keeps
// the full capacity usable instead of reserving a slot.

package buffer

import (
	"github.com/virtnet/virtwire/api"
)

// Ring is a fixed-capacity byte queue with FIFO semantics.
//
// Write never grows the ring and never overwrites unread data: when free
// space runs short it accepts a prefix and reports how many bytes it took.
// That shortfall is the backpressure signal callers act on.
type Ring struct {
	data     []byte
	readIdx  int
	writeIdx int
	used     int
}

// New allocates a ring holding up to capacity bytes.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "ring capacity must be positive").
			WithContext("capacity", capacity)
	}
	return &Ring{data: make([]byte, capacity)}, nil
}

// IsEmpty reports whether no bytes are queued.
func (r *Ring) IsEmpty() bool { return r.used == 0 }

// Len returns the current occupancy in bytes.
func (r *Ring) Len() int { return r.used }

// Cap returns the fixed capacity in bytes.
func (r *Ring) Cap() int { return len(r.data) }

// Free returns the writable headroom in bytes.
func (r *Ring) Free() int { return len(r.data) - r.used }

// Items returns the number of whole items of itemSize bytes currently
// queued. A partial trailing item is not counted.
func (r *Ring) Items(itemSize int) (int, error) {
	if itemSize <= 0 {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "item size must be positive").
			WithContext("itemSize", itemSize)
	}
	return r.used / itemSize, nil
}

// Write appends up to len(p) bytes and returns how many were accepted.
// The copy may wrap across the physical end of the backing array.
func (r *Ring) Write(p []byte) int {
	n := min(len(p), r.Free())
	if n == 0 {
		return 0
	}
	first := min(n, len(r.data)-r.writeIdx)
	copy(r.data[r.writeIdx:], p[:first])
	copy(r.data, p[first:n])
	r.writeIdx = (r.writeIdx + n) % len(r.data)
	r.used += n
	return n
}

// Peek copies up to len(p) queued bytes into p in FIFO order without
// consuming them. Returns the number of bytes copied.
func (r *Ring) Peek(p []byte) int {
	n := min(len(p), r.used)
	if n == 0 {
		return 0
	}
	first := min(n, len(r.data)-r.readIdx)
	copy(p[:first], r.data[r.readIdx:r.readIdx+first])
	copy(p[first:n], r.data[:n-first])
	return n
}

// Discard consumes up to n queued bytes and returns how many were dropped.
func (r *Ring) Discard(n int) int {
	n = min(n, r.used)
	if n == 0 {
		return 0
	}
	r.readIdx = (r.readIdx + n) % len(r.data)
	r.used -= n
	return n
}

// Read copies up to len(p) queued bytes into p in FIFO order, consuming
// them. Returns the number of bytes read; 0 when the ring is empty. A
// single read may span the wraparound boundary.
func (r *Ring) Read(p []byte) int {
	n := r.Peek(p)
	r.Discard(n)
	return n
}

// Reset drops all queued bytes without releasing the backing array.
func (r *Ring) Reset() {
	r.readIdx = 0
	r.writeIdx = 0
	r.used = 0
}
