// ABOUTME: Chunked work stack used by the traversal driver
// ABOUTME: Grows by whole chunks and keeps emptied chunks for reuse within a session

package trav

import (
	"fmt"

	"github.com/prateek/heaptrav/heap"
)

// workItem is one closure awaiting full or partial expansion.
type workItem struct {
	node heap.Addr
	// cl is the resolved closure; nil while the item is still fresh.
	cl  *heap.Closure
	cur cursor
}

// stack is an arena of chunks. chunks[0] is the first chunk, allocated once
// per session. Every chunk below active is full; chunks above active are
// empty and kept for the next growth.
type stack struct {
	alloc  ChunkAllocator
	chunks []*Chunk
	active int

	size    int
	maxSize int
}

func newStack(alloc ChunkAllocator) *stack {
	return &stack{alloc: alloc}
}

// init discards the chunk chain left by a previous session, allocates the
// first chunk and zeroes the counters.
func (s *stack) init() error {
	s.close()
	c, err := s.alloc.Allocate()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChunkAlloc, err)
	}
	s.chunks = append(s.chunks, c)
	s.active = 0
	s.size = 0
	s.maxSize = 0
	return nil
}

// reset releases every chunk but the first and empties the first.
func (s *stack) reset() {
	if len(s.chunks) == 0 {
		return
	}
	if len(s.chunks) > 1 {
		s.alloc.Release(s.chunks[1:])
		clear(s.chunks[1:])
		s.chunks = s.chunks[:1]
	}
	first := s.chunks[0]
	clear(first.items[:first.n])
	first.n = 0
	s.active = 0
	s.size = 0
}

// close releases the whole chain, first chunk included.
func (s *stack) close() {
	if len(s.chunks) == 0 {
		return
	}
	s.alloc.Release(s.chunks)
	clear(s.chunks)
	s.chunks = s.chunks[:0]
	s.active = 0
	s.size = 0
}

func (s *stack) ready() bool {
	return len(s.chunks) > 0
}

func (s *stack) empty() bool {
	return s.active == 0 && s.chunks[0].n == 0
}

// push stores it on top, moving to the next chunk when the active one is
// full. A chunk retained from earlier growth is reused before a new one is
// allocated.
func (s *stack) push(it workItem) error {
	c := s.chunks[s.active]
	if c.n == len(c.items) {
		if s.active+1 == len(s.chunks) {
			nc, err := s.alloc.Allocate()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrChunkAlloc, err)
			}
			s.chunks = append(s.chunks, nc)
		}
		s.active++
		c = s.chunks[s.active]
	}
	c.items[c.n] = it
	c.n++

	s.size++
	if s.size > s.maxSize {
		s.maxSize = s.size
	}
	return nil
}

// peek returns the top item, or nil when the stack is empty. The item may be
// updated in place until it is dropped.
func (s *stack) peek() *workItem {
	c := s.chunks[s.active]
	if c.n == 0 {
		return nil
	}
	return &c.items[c.n-1]
}

// drop removes the top item. Emptying a chunk other than the first returns
// to its predecessor; the emptied chunk stays allocated.
func (s *stack) drop() {
	c := s.chunks[s.active]
	c.n--
	c.items[c.n] = workItem{}
	s.size--
	if c.n == 0 && s.active > 0 {
		s.active--
	}
}

// pop removes and returns the top item. It reports false when the stack is
// empty.
func (s *stack) pop() (workItem, bool) {
	top := s.peek()
	if top == nil {
		return workItem{}, false
	}
	it := *top
	s.drop()
	return it, true
}

// chunkCount returns the number of chunks currently held, retained ones
// included.
func (s *stack) chunkCount() int {
	return len(s.chunks)
}
