// File: medium/medium.go
//
// The Medium simulates a shared broadcast transmission segment: every byte
// drained from one endpoint's channel is offered to every other endpoint's
// ring, then rings are flushed back out to their channels. One logical
// propagation loop mutates the endpoint set and the rings; Connect and
// Disconnect from other goroutines synchronize on the medium mutex, so no
// cycle ever observes a membership change mid-iteration.

package medium

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/hashicorp/go-multierror"

	"github.com/virtnet/virtwire/api"
	"github.com/virtnet/virtwire/core/buffer"
	"github.com/virtnet/virtwire/metrics"
	"github.com/virtnet/virtwire/mux"
)

// Config holds medium construction parameters.
type Config struct {
	BufferCapacity int               // per-endpoint ring capacity in bytes
	MaxEndpoints   int               // attach limit
	DrainLimit     int               // per-endpoint, per-cycle drain cap in bytes
	PollTimeout    time.Duration     // poll bound used by Run between cancellation checks
	Multiplexer    api.Multiplexer   // nil selects the portable notify multiplexer
	Collector      metrics.Collector // nil selects the no-op collector
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BufferCapacity: 64 * 1024,
		MaxEndpoints:   mux.DefaultMaxEndpoints,
		DrainLimit:     32 * 1024,
		PollTimeout:    100 * time.Millisecond,
	}
}

// Stats is a point-in-time snapshot of medium counters.
type Stats struct {
	Endpoints    int
	Cycles       uint64
	Serviced     uint64
	DroppedBytes uint64
}

// Medium owns the endpoint set and runs the propagation loop.
type Medium struct {
	cfg Config
	mux api.Multiplexer
	col metrics.Collector

	mu      sync.Mutex
	eps     *arena
	failed  *queue.Queue // endpoints queued for disconnect at the cycle boundary
	closed  bool
	scratch *buffer.ScratchPool

	cycles   atomic.Uint64
	serviced atomic.Uint64
	drops    atomic.Uint64
}

// New creates a medium. A nil cfg selects DefaultConfig.
func New(cfg *Config) (*Medium, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if c.BufferCapacity <= 0 || c.DrainLimit <= 0 || c.MaxEndpoints <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "medium config values must be positive").
			WithContext("bufferCapacity", c.BufferCapacity).
			WithContext("drainLimit", c.DrainLimit).
			WithContext("maxEndpoints", c.MaxEndpoints)
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultConfig().PollTimeout
	}
	if c.Multiplexer == nil {
		c.Multiplexer = mux.NewNotify(c.MaxEndpoints)
	}
	if c.Collector == nil {
		c.Collector = metrics.Noop{}
	}
	return &Medium{
		cfg:     c,
		mux:     c.Multiplexer,
		col:     c.Collector,
		eps:     newArena(c.MaxEndpoints),
		failed:  queue.New(),
		scratch: buffer.NewScratchPool(c.DrainLimit),
	}, nil
}

// Connect attaches a channel as a new endpoint with a fresh ring and a
// multiplexer registration. The channel remains owned by the caller for the
// lifetime of the endpoint.
func (m *Medium) Connect(ch api.DuplexChannel) (api.EndpointID, error) {
	if ch == nil {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "nil channel")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, api.ErrMediumClosed
	}
	ring, err := buffer.New(m.cfg.BufferCapacity)
	if err != nil {
		return 0, err
	}
	ep := &endpoint{ch: ch, ring: ring}
	id, ok := m.eps.alloc(ep)
	if !ok {
		return 0, api.NewError(api.ErrCodeLimitExceeded, "endpoint limit reached").
			WithContext("max", m.cfg.MaxEndpoints)
	}
	if err := m.mux.Register(id, ch); err != nil {
		m.eps.release(id)
		return 0, err
	}
	m.col.ObserveEndpoints(1)
	return id, nil
}

// Disconnect detaches an endpoint: multiplexer registration removed, ring
// released. The channel is handed back to its owner unclosed. A second
// Disconnect of the same handle reports ErrNotFound and changes nothing.
func (m *Medium) Disconnect(id api.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrMediumClosed
	}
	return m.disconnectLocked(id)
}

func (m *Medium) disconnectLocked(id api.EndpointID) error {
	ep := m.eps.release(id)
	if ep == nil {
		return api.NewError(api.ErrCodeNotFound, "no such endpoint").
			WithContext("endpoint", id)
	}
	m.mux.Deregister(id)
	ep.ring = nil
	m.col.ObserveEndpoints(-1)
	return nil
}

// PropagateOnce runs one propagation cycle: poll for readiness, drain each
// ready source (bounded by DrainLimit), fan the drained bytes out to every
// other endpoint's ring, then flush every non-empty ring to its channel.
// Returns the number of source endpoints serviced.
//
// A transport failure on any endpoint disconnects that endpoint only; the
// cycle keeps servicing the rest. Ring overflow during fan-out is counted
// as dropped bytes, never blocked on.
func (m *Medium) PropagateOnce(timeout time.Duration) (int, error) {
	ready, err := m.mux.Poll(timeout)
	if err != nil {
		if errors.Is(err, api.ErrMuxClosed) {
			return 0, api.ErrMediumClosed
		}
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, api.ErrMediumClosed
	}

	scratch := m.scratch.Get()
	defer m.scratch.Put(scratch)

	serviced := 0
	for _, id := range ready {
		src := m.eps.lookup(id)
		if src == nil {
			// Disconnected between poll and service; stale readiness.
			continue
		}
		serviced++
		drained := m.drainLocked(src, scratch)
		if drained > 0 {
			m.fanOutLocked(src, scratch[:drained])
		}
	}

	m.flushLocked(scratch)
	m.applyFailedLocked()

	m.cycles.Add(1)
	m.serviced.Add(uint64(serviced))
	m.col.ObserveServiced(serviced)
	return serviced, nil
}

// drainLocked pulls currently available bytes from the source channel into
// scratch, up to the per-cycle drain cap.
func (m *Medium) drainLocked(src *endpoint, scratch []byte) int {
	drained := 0
	for drained < len(scratch) {
		n, err := src.ch.TryRead(scratch[drained:])
		if err != nil {
			m.failLocked(src.id)
			break
		}
		if n == 0 {
			break
		}
		drained += n
	}
	return drained
}

// fanOutLocked offers data to every endpoint except the source. Shortfall
// against a full ring is dropped for this cycle and accounted, never
// waited on.
func (m *Medium) fanOutLocked(src *endpoint, data []byte) {
	m.eps.forEach(func(tgt *endpoint) {
		if tgt == src {
			return // broadcast no-echo invariant
		}
		w := tgt.ring.Write(data)
		m.col.ObserveBroadcast(w)
		if w < len(data) {
			lost := len(data) - w
			m.drops.Add(uint64(lost))
			m.col.ObserveDrop(lost)
		}
	})
}

// flushLocked forwards as much queued ring data as each channel will take.
// Unflushed bytes stay queued for the next cycle.
func (m *Medium) flushLocked(scratch []byte) {
	m.eps.forEach(func(ep *endpoint) {
		if ep.ring.IsEmpty() {
			return
		}
		n := ep.ring.Peek(scratch)
		w, err := ep.ch.TryWrite(scratch[:n])
		if err != nil {
			m.failLocked(ep.id)
			return
		}
		ep.ring.Discard(w)
	})
}

// failLocked queues an endpoint that reported a transport failure. The
// disconnect itself is deferred to the cycle boundary so arena iteration
// order is stable within a cycle.
func (m *Medium) failLocked(id api.EndpointID) {
	m.col.ObserveTransportError()
	m.failed.Add(id)
}

func (m *Medium) applyFailedLocked() {
	for m.failed.Length() > 0 {
		id := m.failed.Remove().(api.EndpointID)
		// The same endpoint can fail on both drain and flush in one cycle.
		_ = m.disconnectLocked(id)
	}
}

// Run repeats PropagateOnce until ctx is cancelled, bounding each poll by
// the configured PollTimeout so cancellation is observed even with no
// endpoints ready. Cancellation is cooperative: a cycle in progress always
// completes.
func (m *Medium) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := m.PropagateOnce(m.cfg.PollTimeout); err != nil {
			if errors.Is(err, api.ErrMediumClosed) {
				return nil
			}
			return err
		}
	}
}

// Shutdown disconnects every endpoint, closes their channels (an endpoint
// must not outlive its medium), and releases the multiplexer. Idempotent;
// errors are aggregated, teardown never stops early.
func (m *Medium) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var result *multierror.Error
	m.eps.forEach(func(ep *endpoint) {
		m.mux.Deregister(ep.id)
		if err := ep.ch.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		m.col.ObserveEndpoints(-1)
	})
	m.eps = newArena(m.cfg.MaxEndpoints)
	if err := m.mux.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Drops returns the cumulative count of bytes lost to ring overflow.
func (m *Medium) Drops() uint64 { return m.drops.Load() }

// Endpoints returns the number of endpoints currently attached.
func (m *Medium) Endpoints() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eps.len()
}

// Stats returns a snapshot of the medium's counters.
func (m *Medium) Stats() Stats {
	m.mu.Lock()
	n := m.eps.len()
	m.mu.Unlock()
	return Stats{
		Endpoints:    n,
		Cycles:       m.cycles.Load(),
		Serviced:     m.serviced.Load(),
		DroppedBytes: m.drops.Load(),
	}
}
