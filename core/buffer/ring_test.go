// ring_test.go — FIFO, wraparound, and backpressure tests for the byte ring.
package buffer

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/virtnet/virtwire/api"
)

func TestRing_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := New(c); !errors.Is(err, api.ErrInvalidArgument) {
			t.Fatalf("New(%d): expected ErrInvalidArgument, got %v", c, err)
		}
	}
}

// TestRing_BackpressureScenario walks the capacity-8 acceptance scenario:
// partial accept, refill to full, and a zero-byte write once full.
func TestRing_BackpressureScenario(t *testing.T) {
	r, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	if n := r.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}
	out := make([]byte, 3)
	if n := r.Read(out); n != 3 || !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Fatalf("expected [1 2 3], got %v (n=%d)", out[:n], n)
	}
	if r.Len() != 2 {
		t.Fatalf("expected occupancy 2, got %d", r.Len())
	}
	if n := r.Write([]byte{6, 7, 8, 9, 10, 11}); n != 6 {
		t.Fatalf("expected all 6 free bytes accepted, got %d", n)
	}
	if r.Len() != 8 || r.Free() != 0 {
		t.Fatalf("expected full ring, got len=%d free=%d", r.Len(), r.Free())
	}
	if n := r.Write([]byte{99}); n != 0 {
		t.Fatalf("write into full ring accepted %d bytes", n)
	}
	// Drain and check FIFO order survived the wraparound.
	rest := make([]byte, 8)
	n := r.Read(rest)
	want := []byte{4, 5, 6, 7, 8, 9, 10, 11}
	if n != 8 || !bytes.Equal(rest, want) {
		t.Fatalf("expected %v, got %v", want, rest[:n])
	}
	if !r.IsEmpty() {
		t.Error("expected empty ring after full drain")
	}
}

func TestRing_ReadSpansWraparound(t *testing.T) {
	r, _ := New(8)
	r.Write([]byte{1, 2, 3, 4, 5, 6})
	r.Read(make([]byte, 5)) // readIdx now 5
	r.Write([]byte{7, 8, 9, 10})
	out := make([]byte, 8)
	n := r.Read(out)
	if n != 5 || !bytes.Equal(out[:n], []byte{6, 7, 8, 9, 10}) {
		t.Fatalf("wraparound read returned %v", out[:n])
	}
}

func TestRing_Items(t *testing.T) {
	r, _ := New(16)
	r.Write([]byte{1, 2, 3, 4, 5, 6, 7})
	if _, err := r.Items(0); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("Items(0): expected ErrInvalidArgument, got %v", err)
	}
	cases := []struct{ size, want int }{{1, 7}, {2, 3}, {3, 2}, {7, 1}, {8, 0}}
	for _, c := range cases {
		got, err := r.Items(c.size)
		if err != nil || got != c.want {
			t.Errorf("Items(%d) = %d, want %d (err=%v)", c.size, got, c.want, err)
		}
	}
}

func TestRing_PeekDiscard(t *testing.T) {
	r, _ := New(8)
	r.Write([]byte{1, 2, 3, 4})
	out := make([]byte, 4)
	if n := r.Peek(out); n != 4 || r.Len() != 4 {
		t.Fatalf("Peek consumed data: n=%d len=%d", n, r.Len())
	}
	if n := r.Discard(2); n != 2 || r.Len() != 2 {
		t.Fatalf("Discard(2): n=%d len=%d", n, r.Len())
	}
	if n := r.Discard(10); n != 2 || !r.IsEmpty() {
		t.Fatalf("Discard past occupancy: n=%d empty=%v", n, r.IsEmpty())
	}
}

// TestRing_PropertyBased performs randomized writes and reads against a
// reference bytes.Buffer model and checks the FIFO law plus occupancy
// bounds at every step.
func TestRing_PropertyBased(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		const capacity = 64
		r, _ := New(capacity)
		var model bytes.Buffer

		for i := 0; i < 5000; i++ {
			if rng.Intn(2) == 0 {
				chunk := make([]byte, rng.Intn(24)+1)
				rng.Read(chunk)
				n := r.Write(chunk)
				if n != min(len(chunk), capacity-model.Len()) {
					t.Fatalf("seed %d: write accepted %d of %d with %d free",
						seed, n, len(chunk), capacity-model.Len())
				}
				model.Write(chunk[:n])
			} else {
				out := make([]byte, rng.Intn(24)+1)
				n := r.Read(out)
				want := model.Next(n)
				if !bytes.Equal(out[:n], want) {
					t.Fatalf("seed %d: FIFO violation: got %v want %v", seed, out[:n], want)
				}
			}
			if r.Len() != model.Len() {
				t.Fatalf("seed %d: occupancy %d, model %d", seed, r.Len(), model.Len())
			}
			if items, _ := r.Items(1); items > capacity {
				t.Fatalf("seed %d: occupancy %d exceeds capacity", seed, items)
			}
		}
	}
}

func TestScratchPool_Reuse(t *testing.T) {
	p := NewScratchPool(4096)
	b := p.Get()
	if len(b) != 4096 {
		t.Fatalf("expected 4096-byte scratch, got %d", len(b))
	}
	p.Put(b)
	p.Put(make([]byte, 7)) // wrong size must be rejected, not pooled
	if got := p.Get(); len(got) != 4096 {
		t.Fatalf("pool returned %d-byte slice", len(got))
	}
}
