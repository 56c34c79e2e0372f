//go:build linux

// File: mux/epoll_linux.go
//
// Linux epoll(7) readiness multiplexer for descriptor-backed channels.
// Watches are level-triggered EPOLLIN, so data left undrained keeps the
// endpoint ready on the next Poll.

package mux

import (
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/virtnet/virtwire/api"
)

const epollBatch = 128

// Ensure compile-time interface compliance.
var _ api.Multiplexer = (*Epoll)(nil)

// Epoll multiplexes readiness over channels implementing api.RawConn.
type Epoll struct {
	mu     sync.Mutex
	epfd   int
	fdToID map[int32]api.EndpointID
	idToFD map[api.EndpointID]int32
	max    int
	closed bool
}

// NewEpoll creates an epoll-backed multiplexer bounded at maxEndpoints
// registrations (DefaultMaxEndpoints when maxEndpoints <= 0).
func NewEpoll(maxEndpoints int) (*Epoll, error) {
	if maxEndpoints <= 0 {
		maxEndpoints = DefaultMaxEndpoints
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Epoll{
		epfd:   epfd,
		fdToID: make(map[int32]api.EndpointID),
		idToFD: make(map[api.EndpointID]int32),
		max:    maxEndpoints,
	}, nil
}

// Register adds a descriptor-backed channel to the epoll watch list. The
// channel must implement api.RawConn.
func (m *Epoll) Register(id api.EndpointID, ch api.DuplexChannel) error {
	raw, ok := ch.(api.RawConn)
	if !ok {
		return api.NewError(api.ErrCodeNotSupported, "channel is not descriptor-backed").
			WithContext("endpoint", id)
	}
	fd := int32(raw.RawFD())

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrMuxClosed
	}
	if _, dup := m.idToFD[id]; dup {
		return api.NewError(api.ErrCodeAlreadyRegistered, "endpoint already registered").
			WithContext("endpoint", id)
	}
	if len(m.idToFD) >= m.max {
		return api.NewError(api.ErrCodeLimitExceeded, "multiplexer watch set is full").
			WithContext("max", m.max)
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: fd}
	if err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return api.NewError(api.ErrCodeTransportFailure, "epoll ctl add failed").
			WithContext("endpoint", id).WithContext("errno", err)
	}
	m.fdToID[fd] = id
	m.idToFD[id] = fd
	return nil
}

// Deregister removes an endpoint from the watch list. Safe to call for ids
// that are not registered.
func (m *Epoll) Deregister(id api.EndpointID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fd, ok := m.idToFD[id]
	if !ok {
		return
	}
	// The fd may already be closed by the channel owner; nothing to do
	// beyond dropping the bookkeeping then.
	_ = unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
	delete(m.idToFD, id)
	delete(m.fdToID, fd)
}

// Poll waits for EPOLLIN (or EPOLLERR/EPOLLHUP, which also surface as
// readable so the owner can observe the failure on TryRead) and reports the
// ready endpoints ascending by id.
func (m *Epoll) Poll(timeout time.Duration) ([]api.EndpointID, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, api.ErrMuxClosed
	}
	epfd := m.epfd
	m.mu.Unlock()

	ms := -1
	if timeout >= 0 {
		ms = int(timeout.Milliseconds())
		if timeout > 0 && ms == 0 {
			ms = 1 // sub-millisecond timeouts still must not busy-wait
		}
	}

	var events [epollBatch]unix.EpollEvent
	n, err := unix.EpollWait(epfd, events[:], ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		if err == unix.EBADF {
			return nil, api.ErrMuxClosed
		}
		return nil, err
	}

	m.mu.Lock()
	ready := make([]api.EndpointID, 0, n)
	for i := 0; i < n; i++ {
		if id, ok := m.fdToID[events[i].Fd]; ok {
			ready = append(ready, id)
		}
	}
	m.mu.Unlock()

	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	if len(ready) == 0 {
		return nil, nil
	}
	return ready, nil
}

// Close releases the epoll descriptor. A concurrent Poll returns
// ErrMuxClosed once the descriptor is gone.
func (m *Epoll) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.fdToID = make(map[int32]api.EndpointID)
	m.idToFD = make(map[api.EndpointID]int32)
	return unix.Close(m.epfd)
}
