// File: core/buffer/scratch.go
//
// Pooled scratch slices for drain/flush staging in the propagation loop,
// so steady-state propagation does not allocate.

package buffer

import "sync"

// ScratchPool hands out fixed-size byte slices backed by sync.Pool.
type ScratchPool struct {
	size int
	pool sync.Pool
}

// NewScratchPool creates a pool of slices of exactly size bytes.
func NewScratchPool(size int) *ScratchPool {
	p := &ScratchPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Get returns a scratch slice of the pool's size.
func (p *ScratchPool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put returns a slice to the pool. Slices of a different length are dropped
// for the GC rather than pooled.
func (p *ScratchPool) Put(b []byte) {
	if len(b) != p.size {
		return
	}
	p.pool.Put(&b)
}
