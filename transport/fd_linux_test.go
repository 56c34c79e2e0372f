//go:build linux

// fd_linux_test.go — non-blocking semantics of the descriptor channel.
package transport

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/virtnet/virtwire/api"
)

func fdPair(t *testing.T) (*FDChannel, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := NewFD(fds[0])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch, fds[1]
}

func TestFDChannel_NonBlockingRead(t *testing.T) {
	ch, peer := fdPair(t)
	defer unix.Close(peer)

	buf := make([]byte, 16)
	if n, err := ch.TryRead(buf); n != 0 || err != nil {
		t.Fatalf("empty read = %d, %v; want 0, nil", n, err)
	}
	unix.Write(peer, []byte("data"))
	n, err := ch.TryRead(buf)
	if err != nil || string(buf[:n]) != "data" {
		t.Fatalf("TryRead = %q, %v", buf[:n], err)
	}
}

func TestFDChannel_EOFIsTransportFailure(t *testing.T) {
	ch, peer := fdPair(t)
	unix.Close(peer)

	if _, err := ch.TryRead(make([]byte, 4)); !errors.Is(err, api.ErrTransportFailure) {
		t.Fatalf("expected ErrTransportFailure on EOF, got %v", err)
	}
}

func TestFDChannel_InvalidFD(t *testing.T) {
	if _, err := NewFD(-1); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
