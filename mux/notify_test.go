// notify_test.go — registration bookkeeping and poll semantics for the
// portable multiplexer.
package mux_test

import (
	"errors"
	"testing"
	"time"

	"github.com/virtnet/virtwire/api"
	"github.com/virtnet/virtwire/fake"
	"github.com/virtnet/virtwire/mux"
)

// bareChannel lacks the ReadReadier capability on purpose.
type bareChannel struct{}

func (bareChannel) TryRead(p []byte) (int, error)  { return 0, nil }
func (bareChannel) TryWrite(p []byte) (int, error) { return len(p), nil }
func (bareChannel) Close() error                   { return nil }

func TestNotify_RegisterBookkeeping(t *testing.T) {
	m := mux.NewNotify(2)
	defer m.Close()

	if err := m.Register(1, bareChannel{}); !errors.Is(err, api.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported for bare channel, got %v", err)
	}
	if err := m.Register(1, fake.NewChannel()); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(1, fake.NewChannel()); !errors.Is(err, api.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := m.Register(2, fake.NewChannel()); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(3, fake.NewChannel()); !errors.Is(err, api.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	// Deregister is idempotent, including for never-registered ids.
	m.Deregister(2)
	m.Deregister(2)
	m.Deregister(99)
	if err := m.Register(3, fake.NewChannel()); err != nil {
		t.Fatalf("register after deregister: %v", err)
	}
}

func TestNotify_PollZeroTimeoutDoesNotBlock(t *testing.T) {
	m := mux.NewNotify(0)
	defer m.Close()
	ch := fake.NewChannel()
	if err := m.Register(7, ch); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	ready, err := m.Poll(0)
	if err != nil || len(ready) != 0 {
		t.Fatalf("expected empty poll, got %v (err=%v)", ready, err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("zero timeout poll blocked")
	}
}

func TestNotify_PollReportsReadyAscending(t *testing.T) {
	m := mux.NewNotify(0)
	defer m.Close()
	chA, chB := fake.NewChannel(), fake.NewChannel()
	if err := m.Register(5, chA); err != nil {
		t.Fatal(err)
	}
	if err := m.Register(2, chB); err != nil {
		t.Fatal(err)
	}
	chA.AddReadData([]byte("x"))
	chB.AddReadData([]byte("y"))

	ready, err := m.Poll(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 2 || ready[0] != 2 || ready[1] != 5 {
		t.Fatalf("expected [2 5], got %v", ready)
	}
}

func TestNotify_PollBlocksUntilData(t *testing.T) {
	m := mux.NewNotify(0)
	defer m.Close()
	ch := fake.NewChannel()
	if err := m.Register(4, ch); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.AddReadData([]byte("wake"))
	}()

	ready, err := m.Poll(-1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0] != 4 {
		t.Fatalf("expected [4], got %v", ready)
	}
}

func TestNotify_PollTimeoutElapses(t *testing.T) {
	m := mux.NewNotify(0)
	defer m.Close()
	if err := m.Register(1, fake.NewChannel()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	ready, err := m.Poll(30 * time.Millisecond)
	if err != nil || ready != nil {
		t.Fatalf("expected timeout with no endpoints ready, got %v (err=%v)", ready, err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("poll returned after %v, before the timeout", elapsed)
	}
}

func TestNotify_CloseWakesBlockedPoll(t *testing.T) {
	m := mux.NewNotify(0)
	if err := m.Register(1, fake.NewChannel()); err != nil {
		t.Fatal(err)
	}

	errC := make(chan error, 1)
	go func() {
		_, err := m.Poll(-1)
		errC <- err
	}()
	time.Sleep(20 * time.Millisecond)
	m.Close()

	select {
	case err := <-errC:
		if !errors.Is(err, api.ErrMuxClosed) {
			t.Fatalf("expected ErrMuxClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the blocked poll")
	}
}
