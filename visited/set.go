// ABOUTME: Open-addressed set of closure addresses used for cycle detection during a walk
// ABOUTME: Fixed power-of-two table, multiplicative hashing and linear probing; never grows

// Package visited records which closures a walk has already reported.
package visited

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/prateek/heaptrav/heap"
)

// ErrFull is returned when every slot of the table is taken.
var ErrFull = errors.New("visited set is full")

// DefaultCapacity is the table size used when none is configured.
const DefaultCapacity = 1 << 24

const hashMultiplier = 0xcfd41b91

// Set is an insert-only set of untagged addresses. The zero address cannot
// be stored.
type Set struct {
	slots []heap.Addr
	mask  uint64
	n     int
}

// New returns a set with room for capacity addresses, rounded up to a power
// of two.
func New(capacity int) *Set {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	size := uint64(1) << bits.Len64(uint64(capacity-1))
	return &Set{
		slots: make([]heap.Addr, size),
		mask:  size - 1,
	}
}

// Seen inserts a and reports whether it was already present. It fails with
// ErrFull when a is new and there is no free slot left.
func (s *Set) Seen(a heap.Addr) (bool, error) {
	a = a.StripTag()
	if a == heap.Nil {
		return false, fmt.Errorf("cannot record the nil address")
	}
	base := (uint64(a) * hashMultiplier) & s.mask
	for i := uint64(0); i <= s.mask; i++ {
		pos := (base + i) & s.mask
		switch s.slots[pos] {
		case a:
			return true, nil
		case heap.Nil:
			s.slots[pos] = a
			s.n++
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %d entries", ErrFull, s.n)
}

// Contains reports whether a has been recorded.
func (s *Set) Contains(a heap.Addr) bool {
	a = a.StripTag()
	if a == heap.Nil {
		return false
	}
	base := (uint64(a) * hashMultiplier) & s.mask
	for i := uint64(0); i <= s.mask; i++ {
		switch s.slots[(base+i)&s.mask] {
		case a:
			return true
		case heap.Nil:
			return false
		}
	}
	return false
}

// Len returns the number of recorded addresses.
func (s *Set) Len() int {
	return s.n
}

// Cap returns the number of slots.
func (s *Set) Cap() int {
	return len(s.slots)
}

// Reset forgets every address.
func (s *Set) Reset() {
	clear(s.slots)
	s.n = 0
}
