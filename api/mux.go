// File: api/mux.go
//
// Readiness multiplexer contract: report which registered endpoints have
// data available to read, without one goroutine per endpoint and without
// spinning.

package api

import "time"

// Multiplexer watches a bounded set of duplex channels for read readiness.
//
// Implementations must be safe for concurrent Register/Deregister against a
// single Poll loop. Poll results within one call are sorted by ascending
// EndpointID so that simultaneous readiness is serviced deterministically.
type Multiplexer interface {
	// Register adds a channel to the watch set. Fails with
	// ErrLimitExceeded above the implementation's endpoint bound,
	// ErrAlreadyRegistered on a duplicate id, and ErrNotSupported when the
	// channel lacks the capability the implementation requires.
	Register(id EndpointID, ch DuplexChannel) error

	// Deregister removes a channel from the watch set. Idempotent: removing
	// an id that is not registered is a no-op.
	Deregister(id EndpointID)

	// Poll returns the endpoints that currently have readable data.
	//
	// timeout == 0 never blocks; timeout < 0 blocks until at least one
	// endpoint is ready or the multiplexer is closed. A nil slice with a
	// nil error means the timeout elapsed with nothing ready. Each call is
	// independent and returns a finite result.
	Poll(timeout time.Duration) ([]EndpointID, error)

	// Close releases multiplexer resources and wakes a blocked Poll with
	// ErrMuxClosed.
	Close() error
}
