// File: fake/mux.go

package fake

import (
	"sync"
	"time"

	"github.com/virtnet/virtwire/api"
)

var _ api.Multiplexer = (*Mux)(nil)

// Mux is a scriptable multiplexer: Poll returns pre-queued result sets in
// order and records every call for assertions.
type Mux struct {
	mu         sync.Mutex
	Registered map[api.EndpointID]api.DuplexChannel
	results    [][]api.EndpointID
	PollCount  int
	closed     bool
}

// NewMux creates an empty fake multiplexer.
func NewMux() *Mux {
	return &Mux{Registered: make(map[api.EndpointID]api.DuplexChannel)}
}

// QueuePoll schedules a result set for a future Poll call.
func (m *Mux) QueuePoll(ids ...api.EndpointID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, ids)
}

func (m *Mux) Register(id api.EndpointID, ch api.DuplexChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrMuxClosed
	}
	if _, dup := m.Registered[id]; dup {
		return api.ErrAlreadyRegistered
	}
	m.Registered[id] = ch
	return nil
}

func (m *Mux) Deregister(id api.EndpointID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Registered, id)
}

// Poll pops the next queued result set; an empty queue yields no endpoints.
func (m *Mux) Poll(time.Duration) ([]api.EndpointID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, api.ErrMuxClosed
	}
	m.PollCount++
	if len(m.results) == 0 {
		return nil, nil
	}
	ids := m.results[0]
	m.results = m.results[1:]
	return ids, nil
}

func (m *Mux) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
