// File: api/channel.go
//
// Defines the duplex byte channel abstraction every endpoint is attached
// through, plus the optional capabilities the multiplexer implementations
// key on. The real transport behind a channel (socketpair, pipe, in-memory
// queue) is supplied by the caller and is opaque to the medium.

package api

// DuplexChannel abstracts a full-duplex, non-blocking byte channel.
//
// Both operations return immediately. A zero count with a nil error means
// "nothing transferable right now", not end of stream. A non-nil error is an
// unrecoverable transport failure; the medium responds by disconnecting the
// endpoint that owns the channel.
type DuplexChannel interface {
	// TryRead copies available bytes into p without blocking.
	TryRead(p []byte) (n int, err error)

	// TryWrite writes bytes from p without blocking and reports how many
	// were accepted by the underlying transport.
	TryWrite(p []byte) (n int, err error)

	// Close shuts down the channel and releases transport resources.
	Close() error
}

// ReadReadier is an optional channel capability consumed by the portable
// notify multiplexer.
//
// The returned channel is a coalescing readiness token: it holds a value
// exactly when TryRead would return at least one byte. Implementations keep
// the token level-consistent under their own lock (armed after any write
// that leaves data pending, re-armed after a partial read, drained when the
// channel empties).
type ReadReadier interface {
	ReadReady() <-chan struct{}
}

// RawConn is an optional channel capability consumed by the epoll
// multiplexer on Linux. Channels not backed by an OS descriptor simply do
// not implement it.
type RawConn interface {
	// RawFD returns the underlying OS-level file descriptor.
	RawFD() uintptr
}

// EndpointID is a generation-checked endpoint handle issued by a Medium.
//
// The low 32 bits address an arena slot, the high 32 bits carry the slot's
// generation at issue time. A disconnected slot bumps its generation, so a
// stale handle can never alias a successor endpoint.
type EndpointID uint64

// NewEndpointID packs a slot index and generation into a handle.
func NewEndpointID(slot, gen uint32) EndpointID {
	return EndpointID(uint64(gen)<<32 | uint64(slot))
}

// Slot returns the arena slot index encoded in the handle.
func (id EndpointID) Slot() uint32 { return uint32(id) }

// Generation returns the slot generation encoded in the handle.
func (id EndpointID) Generation() uint32 { return uint32(id >> 32) }
