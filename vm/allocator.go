package vm

import (
	"sync"
	"sync/atomic"
)

// DefaultBlockSize is the allocation block size used when Params leaves it
// zero.
const DefaultBlockSize = 256

// PoolAllocator hands out byte blocks rounded up to a multiple of its block
// size and recycles blocks of exactly one block through a sync.Pool.
type PoolAllocator struct {
	blockSize int
	pool      sync.Pool

	allocs atomic.Int64
	frees  atomic.Int64
}

// NewPoolAllocator creates an allocator with the given block size.
func NewPoolAllocator(blockSize int) *PoolAllocator {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	a := &PoolAllocator{blockSize: blockSize}
	a.pool.New = func() any {
		buf := make([]byte, 0, blockSize)
		return &buf
	}
	return a
}

// BlockSize returns the allocation granularity.
func (a *PoolAllocator) BlockSize() int {
	return a.blockSize
}

func (a *PoolAllocator) roundUp(n int) int {
	if n <= 0 {
		return a.blockSize
	}
	return (n + a.blockSize - 1) / a.blockSize * a.blockSize
}

// Alloc implements engine.Allocator.
func (a *PoolAllocator) Alloc(size int) []byte {
	a.allocs.Add(1)
	size = a.roundUp(size)
	if size == a.blockSize {
		buf := a.pool.Get().(*[]byte)
		return (*buf)[:0]
	}
	return make([]byte, 0, size)
}

// Realloc implements engine.Allocator.
func (a *PoolAllocator) Realloc(buf []byte, n int) []byte {
	if len(buf)+n <= cap(buf) {
		return buf
	}
	out := a.Alloc(max(2*cap(buf), len(buf)+n))
	out = append(out, buf...)
	a.Free(buf)
	return out
}

// Free implements engine.Allocator.
func (a *PoolAllocator) Free(buf []byte) {
	a.frees.Add(1)
	if cap(buf) != a.blockSize {
		return
	}
	buf = buf[:0]
	a.pool.Put(&buf)
}

// Live returns the number of blocks allocated and not yet freed.
func (a *PoolAllocator) Live() int64 {
	return a.allocs.Load() - a.frees.Load()
}
