// File: mux/notify.go
//
// Portable readiness multiplexer over channels implementing
// api.ReadReadier. A Poll first does a non-blocking level scan of every
// readiness token; only when nothing is ready does it park in a single
// reflect.Select across the whole watch set, so there is no goroutine per
// endpoint and no spinning.
//
// Poll consumes readiness tokens. Callers are expected to drain the
// endpoints a Poll reports; conforming channels re-arm their token whenever
// a read leaves data pending.

package mux

import (
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/virtnet/virtwire/api"
)

// DefaultMaxEndpoints bounds the watch set when no explicit limit is given.
const DefaultMaxEndpoints = 256

// Ensure compile-time interface compliance.
var _ api.Multiplexer = (*Notify)(nil)

type notifyEntry struct {
	id    api.EndpointID
	ready <-chan struct{}
}

// Notify is the portable Multiplexer implementation.
type Notify struct {
	mu      sync.Mutex
	entries map[api.EndpointID]<-chan struct{}
	max     int
	closeC  chan struct{}
	closed  bool
}

// NewNotify creates a Notify multiplexer bounded at maxEndpoints
// registrations (DefaultMaxEndpoints when maxEndpoints <= 0).
func NewNotify(maxEndpoints int) *Notify {
	if maxEndpoints <= 0 {
		maxEndpoints = DefaultMaxEndpoints
	}
	return &Notify{
		entries: make(map[api.EndpointID]<-chan struct{}),
		max:     maxEndpoints,
		closeC:  make(chan struct{}),
	}
}

// Register adds a channel to the watch set. The channel must implement
// api.ReadReadier.
func (m *Notify) Register(id api.EndpointID, ch api.DuplexChannel) error {
	rr, ok := ch.(api.ReadReadier)
	if !ok {
		return api.NewError(api.ErrCodeNotSupported, "channel does not expose a readiness token").
			WithContext("endpoint", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrMuxClosed
	}
	if _, dup := m.entries[id]; dup {
		return api.NewError(api.ErrCodeAlreadyRegistered, "endpoint already registered").
			WithContext("endpoint", id)
	}
	if len(m.entries) >= m.max {
		return api.NewError(api.ErrCodeLimitExceeded, "multiplexer watch set is full").
			WithContext("max", m.max)
	}
	m.entries[id] = rr.ReadReady()
	return nil
}

// Deregister removes an endpoint from the watch set. Safe to call for ids
// that are not registered.
func (m *Notify) Deregister(id api.EndpointID) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

// Poll reports the endpoints with data available, ascending by id.
func (m *Notify) Poll(timeout time.Duration) ([]api.EndpointID, error) {
	snapshot, err := m.snapshot()
	if err != nil {
		return nil, err
	}

	ready := sweep(snapshot, nil)
	if len(ready) > 0 || timeout == 0 {
		return ready, nil
	}

	// Nothing ready: park on the whole watch set plus close/timer.
	cases := make([]reflect.SelectCase, 0, len(snapshot)+2)
	for _, e := range snapshot {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(e.ready),
		})
	}
	closeIdx := len(cases)
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(m.closeC),
	})
	timerIdx := -1
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerIdx = len(cases)
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(timer.C),
		})
	}

	chosen, _, _ := reflect.Select(cases)
	switch chosen {
	case closeIdx:
		return nil, api.ErrMuxClosed
	case timerIdx:
		return nil, nil
	}

	// One endpoint woke us; sweep the rest so simultaneous readiness is
	// reported in a single result.
	ready = append(ready, snapshot[chosen].id)
	rest := append(snapshot[:chosen:chosen], snapshot[chosen+1:]...)
	ready = sweep(rest, ready)
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	return ready, nil
}

// Close wakes any blocked Poll and rejects further registrations.
func (m *Notify) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closeC)
		m.entries = make(map[api.EndpointID]<-chan struct{})
	}
	return nil
}

// snapshot copies the watch set sorted by ascending id.
func (m *Notify) snapshot() ([]notifyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, api.ErrMuxClosed
	}
	out := make([]notifyEntry, 0, len(m.entries))
	for id, ready := range m.entries {
		out = append(out, notifyEntry{id: id, ready: ready})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

// sweep collects every entry whose readiness token is armed, without
// blocking. Entries arrive sorted, so append preserves ascending order.
func sweep(entries []notifyEntry, ready []api.EndpointID) []api.EndpointID {
	for _, e := range entries {
		select {
		case <-e.ready:
			ready = append(ready, e.id)
		default:
		}
	}
	return ready
}
