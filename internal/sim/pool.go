package sim

import (
	"sync"

	"firesim/internal/core"
)

// BurnedPool is a free list of burned-cell bitmaps shared across scenario
// runs. Correctness never depends on it; a fresh allocation is always a
// valid substitute. Every entry held by the pool is cleared.
type BurnedPool struct {
	mu   sync.Mutex
	size core.Size
	free []*core.BitGrid
}

// NewBurnedPool creates a pool manufacturing bitmaps of the given size.
func NewBurnedPool(size core.Size) *BurnedPool {
	return &BurnedPool{size: size}
}

// Acquire returns a cleared bitmap, reusing a pooled one when available.
func (p *BurnedPool) Acquire() *core.BitGrid {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		g := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return g
	}
	p.mu.Unlock()
	return core.NewBitGrid(p.size)
}

// Release clears the bitmap and returns it to the pool. Releasing nil is a
// no-op so callers can release unconditionally.
func (p *BurnedPool) Release(g *core.BitGrid) {
	if g == nil {
		return
	}
	g.Clear()
	p.mu.Lock()
	p.free = append(p.free, g)
	p.mu.Unlock()
}

// Idle reports how many bitmaps are waiting in the pool.
func (p *BurnedPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
