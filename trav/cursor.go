// ABOUTME: Resumption cursors recording how far a closure's children have been produced
// ABOUTME: Step counters for named fields, indexed pointer runs, and a trailing static reference

package trav

import "github.com/prateek/heaptrav/heap"

type cursorMode uint8

const (
	// cursorFresh: the closure has not been classified or visited yet.
	cursorFresh cursorMode = iota
	// cursorStep: step selects the next named field of a fixed-shape kind.
	cursorStep
	// cursorPtrs: ptrs[pos:] are still to be produced, then srt.
	cursorPtrs
	// cursorSRT: only srt is left.
	cursorSRT
)

type cursor struct {
	mode cursorMode

	step uint32

	pos  uint32
	ptrs []heap.Word

	srt heap.Addr

	// parent is the closure that discovered a fresh item.
	parent heap.Addr
}

func freshCursor(parent heap.Addr) cursor {
	return cursor{mode: cursorFresh, parent: parent}
}

func stepCursor(step uint32) cursor {
	return cursor{mode: cursorStep, step: step}
}

// ptrsCursor scans ptrs and then falls through to srt, which may be Nil.
func ptrsCursor(ptrs []heap.Word, srt heap.Addr) cursor {
	return cursor{mode: cursorPtrs, ptrs: ptrs, srt: srt}
}

func srtCursor(srt heap.Addr) cursor {
	return cursor{mode: cursorSRT, srt: srt}
}

// next produces the next child of a pointer or SRT cursor. It reports false
// once nothing is left. The static reference is produced exactly once and
// only after every pointer slot.
func (c *cursor) next() (heap.Addr, bool) {
	if c.mode == cursorPtrs {
		if c.pos < uint32(len(c.ptrs)) {
			a := c.ptrs[c.pos].Ptr()
			c.pos++
			return a, true
		}
		c.mode = cursorSRT
	}
	if c.mode == cursorSRT && c.srt != heap.Nil {
		a := c.srt
		c.srt = heap.Nil
		return a, true
	}
	return heap.Nil, false
}

// exhausted reports whether next would produce nothing more.
func (c *cursor) exhausted() bool {
	switch c.mode {
	case cursorPtrs:
		return c.pos >= uint32(len(c.ptrs)) && c.srt == heap.Nil
	case cursorSRT:
		return c.srt == heap.Nil
	}
	return false
}
