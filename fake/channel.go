// Package fake provides scriptable implementations of the core interfaces
// for deterministic tests without sockets.
package fake

import (
	"sync"

	"github.com/virtnet/virtwire/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.DuplexChannel = (*Channel)(nil)
	_ api.ReadReadier   = (*Channel)(nil)
)

// Channel is a scriptable duplex channel: inbound bytes are queued with
// AddReadData, outbound writes are recorded, and both directions can be
// forced to fail or short-count.
type Channel struct {
	mu        sync.Mutex
	readQueue []byte
	written   []byte
	readyC    chan struct{}

	readError  error
	writeError error
	writeCap   int // max bytes accepted per TryWrite; 0 means unlimited
}

// NewChannel creates a fake channel with empty queues.
func NewChannel() *Channel {
	return &Channel{readyC: make(chan struct{}, 1)}
}

// TryRead pops queued inbound bytes.
func (c *Channel) TryRead(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readError != nil {
		return 0, c.readError
	}
	n := copy(p, c.readQueue)
	c.readQueue = c.readQueue[n:]
	c.syncTokenLocked()
	return n, nil
}

// TryWrite records outbound bytes, honoring the configured error and
// short-count settings.
func (c *Channel) TryWrite(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeError != nil {
		return 0, c.writeError
	}
	n := len(p)
	if c.writeCap > 0 && n > c.writeCap {
		n = c.writeCap
	}
	c.written = append(c.written, p[:n]...)
	return n, nil
}

// ReadReady returns the readiness token channel.
func (c *Channel) ReadReady() <-chan struct{} { return c.readyC }

// Close is a no-op for the fake.
func (c *Channel) Close() error { return nil }

// AddReadData queues bytes to be returned by subsequent TryRead calls and
// arms the readiness token.
func (c *Channel) AddReadData(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readQueue = append(c.readQueue, data...)
	c.syncTokenLocked()
}

// Written returns a copy of everything accepted by TryWrite.
func (c *Channel) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.written))
	copy(out, c.written)
	return out
}

// SetReadError configures TryRead to fail.
func (c *Channel) SetReadError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readError = err
}

// SetWriteError configures TryWrite to fail.
func (c *Channel) SetWriteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeError = err
}

// SetWriteCap limits how many bytes each TryWrite accepts.
func (c *Channel) SetWriteCap(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeCap = n
}

func (c *Channel) syncTokenLocked() {
	if len(c.readQueue) == 0 {
		select {
		case <-c.readyC:
		default:
		}
		return
	}
	select {
	case c.readyC <- struct{}{}:
	default:
	}
}
