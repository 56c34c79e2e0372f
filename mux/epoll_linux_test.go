//go:build linux

// epoll_linux_test.go — epoll multiplexer over real socketpairs.
package mux_test

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/virtnet/virtwire/api"
	"github.com/virtnet/virtwire/fake"
	"github.com/virtnet/virtwire/mux"
	"github.com/virtnet/virtwire/transport"
)

// socketPair returns a connected pair: the channel under test and the raw
// peer fd the test writes through.
func socketPair(t *testing.T) (*transport.FDChannel, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := transport.NewFD(fds[0])
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ch.Close(); unix.Close(fds[1]) })
	return ch, fds[1]
}

func TestEpoll_RequiresRawConn(t *testing.T) {
	m, err := mux.NewEpoll(0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if err := m.Register(1, fake.NewChannel()); !errors.Is(err, api.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for non-descriptor channel, got %v", err)
	}
}

func TestEpoll_PollReportsReadable(t *testing.T) {
	m, err := mux.NewEpoll(0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ch, peer := socketPair(t)
	if err := m.Register(9, ch); err != nil {
		t.Fatal(err)
	}

	ready, err := m.Poll(0)
	if err != nil || len(ready) != 0 {
		t.Fatalf("expected nothing readable yet, got %v (err=%v)", ready, err)
	}

	if _, err := unix.Write(peer, []byte("ping")); err != nil {
		t.Fatal(err)
	}
	ready, err = m.Poll(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0] != 9 {
		t.Fatalf("expected [9], got %v", ready)
	}

	// Level-triggered: undrained data keeps the endpoint ready.
	ready, err = m.Poll(0)
	if err != nil || len(ready) != 1 {
		t.Fatalf("expected endpoint still ready, got %v (err=%v)", ready, err)
	}

	buf := make([]byte, 16)
	n, err := ch.TryRead(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Fatalf("TryRead = %q, %v", buf[:n], err)
	}
	ready, _ = m.Poll(0)
	if len(ready) != 0 {
		t.Fatalf("expected drained endpoint not ready, got %v", ready)
	}
}

func TestEpoll_AscendingOrder(t *testing.T) {
	m, err := mux.NewEpoll(0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	chHigh, peerHigh := socketPair(t)
	chLow, peerLow := socketPair(t)
	if err := m.Register(20, chHigh); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(10, chLow); err != nil {
		t.Fatal(err)
	}
	unix.Write(peerHigh, []byte("a"))
	unix.Write(peerLow, []byte("b"))

	ready, err := m.Poll(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 2 || ready[0] != 10 || ready[1] != 20 {
		t.Fatalf("expected [10 20], got %v", ready)
	}
}

func TestEpoll_DeregisterIdempotent(t *testing.T) {
	m, err := mux.NewEpoll(0)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ch, peer := socketPair(t)
	if err := m.Register(3, ch); err != nil {
		t.Fatal(err)
	}
	m.Deregister(3)
	m.Deregister(3)

	unix.Write(peer, []byte("x"))
	ready, err := m.Poll(50 * time.Millisecond)
	if err != nil || len(ready) != 0 {
		t.Fatalf("deregistered endpoint reported ready: %v (err=%v)", ready, err)
	}
}
