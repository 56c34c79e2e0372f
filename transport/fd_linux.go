//go:build linux

// File: transport/fd_linux.go
//
// Descriptor-backed duplex channel. The descriptor is switched to
// non-blocking mode at construction; EAGAIN surfaces as a zero-byte
// transfer, EOF and hard errors as transport failures. Implements
// api.RawConn for the epoll multiplexer.

package transport

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/virtnet/virtwire/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.DuplexChannel = (*FDChannel)(nil)
	_ api.RawConn       = (*FDChannel)(nil)
)

// FDChannel adapts an OS file descriptor (socketpair end, pipe, socket) to
// the duplex channel contract.
type FDChannel struct {
	fd     int
	closed atomic.Bool
}

// NewFD wraps fd, putting it into non-blocking mode. The channel takes
// ownership of the descriptor and closes it on Close.
func NewFD(fd int) (*FDChannel, error) {
	if fd < 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "negative file descriptor").
			WithContext("fd", fd)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, api.NewError(api.ErrCodeTransportFailure, "set nonblock failed").
			WithContext("fd", fd).WithContext("errno", err)
	}
	return &FDChannel{fd: fd}, nil
}

// TryRead reads available bytes without blocking.
func (c *FDChannel) TryRead(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.NewError(api.ErrCodeTransportFailure, "read from closed channel")
	}
	n, err := unix.Read(c.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err != nil:
		return 0, api.NewError(api.ErrCodeTransportFailure, "read failed").
			WithContext("fd", c.fd).WithContext("errno", err)
	case n == 0 && len(p) > 0:
		// A successful zero-byte read on a stream descriptor is EOF.
		return 0, api.NewError(api.ErrCodeTransportFailure, "peer closed the descriptor").
			WithContext("fd", c.fd)
	}
	return n, nil
}

// TryWrite writes bytes without blocking and reports how many the kernel
// accepted.
func (c *FDChannel) TryWrite(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, api.NewError(api.ErrCodeTransportFailure, "write to closed channel")
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.Write(c.fd, p)
	switch {
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, nil
	case err != nil:
		return 0, api.NewError(api.ErrCodeTransportFailure, "write failed").
			WithContext("fd", c.fd).WithContext("errno", err)
	}
	return n, nil
}

// RawFD returns the underlying descriptor.
func (c *FDChannel) RawFD() uintptr { return uintptr(c.fd) }

// Close closes the descriptor.
func (c *FDChannel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return unix.Close(c.fd)
}
