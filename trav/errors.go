// ABOUTME: Error values reported by the traversal engine
// ABOUTME: All of them end the current batch; none is retried

package trav

import (
	"errors"
	"fmt"

	"github.com/prateek/heaptrav/heap"
)

var (
	// ErrNotAcquired is returned when a session is used before Acquire or
	// after Release.
	ErrNotAcquired = errors.New("traversal session not acquired")

	// ErrChunkAlloc is returned when the stack cannot grow.
	ErrChunkAlloc = errors.New("cannot allocate traversal stack chunk")

	// ErrBadClosure is returned for a closure whose kind is unknown, appears
	// where it cannot occur, or whose address does not resolve. It means the
	// heap is corrupt or the kind taxonomy is out of date.
	ErrBadClosure = errors.New("invalid closure")
)

// badClosure reports closure a of kind k found while doing op.
func badClosure(op string, a heap.Addr, k heap.Kind) error {
	return fmt.Errorf("%w in %s: %s at %s", ErrBadClosure, op, k, a)
}

func danglingPointer(op string, a, parent heap.Addr) error {
	return fmt.Errorf("%w in %s: no closure at %s (from %s)", ErrBadClosure, op, a, parent)
}
