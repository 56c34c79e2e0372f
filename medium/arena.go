// File: medium/arena.go
//
// Endpoint arena: slot table with per-slot generations. A handle issued for
// a slot stops resolving the moment the slot is released, so a stale
// EndpointID held by a caller can never reach a successor endpoint.

package medium

import (
	"github.com/virtnet/virtwire/api"
	"github.com/virtnet/virtwire/core/buffer"
)

// endpoint is one attached party: its duplex channel plus its inbound ring.
// The channel stays owned by the caller; the ring is owned here.
type endpoint struct {
	id   api.EndpointID
	ch   api.DuplexChannel
	ring *buffer.Ring
}

type slot struct {
	gen uint32
	ep  *endpoint
}

// arena owns endpoint records, addressed by generation-checked handles.
type arena struct {
	slots []slot
	free  []uint32
	count int
	max   int
}

func newArena(max int) *arena {
	return &arena{max: max}
}

// alloc claims a slot for ep, assigns its handle, and returns it. ok is
// false when the arena is at capacity.
func (a *arena) alloc(ep *endpoint) (api.EndpointID, bool) {
	if a.count >= a.max {
		return 0, false
	}
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}
	id := api.NewEndpointID(idx, a.slots[idx].gen)
	ep.id = id
	a.slots[idx].ep = ep
	a.count++
	return id, true
}

// lookup resolves a handle to its endpoint, or nil when the handle is
// stale, released, or out of range.
func (a *arena) lookup(id api.EndpointID) *endpoint {
	idx := id.Slot()
	if int(idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if s.gen != id.Generation() || s.ep == nil {
		return nil
	}
	return s.ep
}

// release frees the slot behind id, bumping its generation, and returns the
// evicted endpoint (nil when the handle did not resolve).
func (a *arena) release(id api.EndpointID) *endpoint {
	ep := a.lookup(id)
	if ep == nil {
		return nil
	}
	idx := id.Slot()
	a.slots[idx].ep = nil
	a.slots[idx].gen++
	a.free = append(a.free, idx)
	a.count--
	return ep
}

// forEach visits live endpoints in ascending slot order, which keeps
// fan-out and flush ordering deterministic.
func (a *arena) forEach(fn func(*endpoint)) {
	for i := range a.slots {
		if ep := a.slots[i].ep; ep != nil {
			fn(ep)
		}
	}
}

func (a *arena) len() int { return a.count }
