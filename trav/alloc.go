// ABOUTME: Chunk allocators backing the traversal stack
// ABOUTME: A sync.Pool allocator for normal use and a budgeted wrapper that fails on demand

package trav

import (
	"fmt"
	"sync"
)

// DefaultChunkCapacity is the number of work items held by one chunk.
const DefaultChunkCapacity = 1024

// Chunk is one fixed-capacity block of the traversal stack.
type Chunk struct {
	items []workItem
	n     int
}

// Cap returns the number of work items the chunk holds when full.
func (c *Chunk) Cap() int {
	return len(c.items)
}

// ChunkAllocator supplies and takes back stack chunks.
type ChunkAllocator interface {
	// Allocate returns an empty chunk.
	Allocate() (*Chunk, error)
	// Release takes back a chain of chunks no longer in use.
	Release(chunks []*Chunk)
}

// PoolAllocator recycles chunks of one capacity through a sync.Pool.
type PoolAllocator struct {
	capacity int
	pool     sync.Pool
}

// NewPoolAllocator returns an allocator of chunks holding capacity items.
// A capacity below one selects DefaultChunkCapacity.
func NewPoolAllocator(capacity int) *PoolAllocator {
	if capacity < 1 {
		capacity = DefaultChunkCapacity
	}
	a := &PoolAllocator{capacity: capacity}
	a.pool.New = func() any {
		return &Chunk{items: make([]workItem, a.capacity)}
	}
	return a
}

// Allocate returns an empty chunk from the pool.
func (a *PoolAllocator) Allocate() (*Chunk, error) {
	return a.pool.Get().(*Chunk), nil
}

// Release clears the chunks and returns them to the pool.
func (a *PoolAllocator) Release(chunks []*Chunk) {
	for _, c := range chunks {
		clear(c.items[:c.n])
		c.n = 0
		a.pool.Put(c)
	}
}

// LimitedAllocator caps the number of chunks live at once.
type LimitedAllocator struct {
	inner ChunkAllocator
	limit int

	mu   sync.Mutex
	live int
}

// NewLimitedAllocator wraps inner so that at most limit chunks are live.
func NewLimitedAllocator(inner ChunkAllocator, limit int) *LimitedAllocator {
	return &LimitedAllocator{inner: inner, limit: limit}
}

// Allocate returns a chunk from the inner allocator unless the budget is
// spent.
func (a *LimitedAllocator) Allocate() (*Chunk, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.live >= a.limit {
		return nil, fmt.Errorf("chunk budget of %d exhausted", a.limit)
	}
	c, err := a.inner.Allocate()
	if err != nil {
		return nil, err
	}
	a.live++
	return c, nil
}

// Release hands the chunks back to the inner allocator.
func (a *LimitedAllocator) Release(chunks []*Chunk) {
	a.mu.Lock()
	a.live -= len(chunks)
	a.mu.Unlock()
	a.inner.Release(chunks)
}

// Live returns the number of chunks currently allocated.
func (a *LimitedAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}
