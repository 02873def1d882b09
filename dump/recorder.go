// ABOUTME: Visit reporter writing the root and visit log of a walk
// ABOUTME: Combines the visited set with line output so it can serve as the walk's visit callback

// Package dump writes and reads the textual log of a heap walk and converts
// it into a JSON document of closures and edges.
package dump

import (
	"bufio"
	"fmt"
	"io"

	"github.com/prateek/heaptrav/heap"
	"github.com/prateek/heaptrav/visited"
)

// Line prefixes of the walk log.
const (
	rootPrefix  = "### root "
	visitPrefix = "### visit "
)

// unknownInfo stands in for closures without an info label.
const unknownInfo = "???"

// Recorder logs roots and visits and decides, through its visited set,
// whether the walk should descend into a closure.
type Recorder struct {
	w    *bufio.Writer
	heap heap.Heap
	seen *visited.Set
	err  error

	roots  int
	visits int
}

// NewRecorder returns a recorder writing to w. Sizes and labels are read
// from h.
func NewRecorder(w io.Writer, h heap.Heap, seen *visited.Set) *Recorder {
	return &Recorder{
		w:    bufio.NewWriterSize(w, 64*1024),
		heap: h,
		seen: seen,
	}
}

// Root logs a root before it is seeded.
func (r *Recorder) Root(a heap.Addr) {
	if r.err != nil {
		return
	}
	r.roots++
	_, r.err = fmt.Fprintf(r.w, "%s%s\n", rootPrefix, a.StripTag())
}

// Visit logs the edge parent -> node and reports whether node is new. Once
// an error has occurred every later visit is refused, which prunes the rest
// of the walk.
func (r *Recorder) Visit(node, parent heap.Addr) bool {
	if r.err != nil {
		return false
	}
	node = node.StripTag()
	parent = parent.StripTag()
	if parent == heap.Nil {
		parent = node
	}
	r.visits++
	if _, err := fmt.Fprintf(r.w, "%s%s <- %s\n", visitPrefix, r.describe(node), r.describe(parent)); err != nil {
		r.err = err
		return false
	}
	seen, err := r.seen.Seen(node)
	if err != nil {
		r.err = err
		return false
	}
	return !seen
}

func (r *Recorder) describe(a heap.Addr) string {
	var size uint64
	info := unknownInfo
	if cl, ok := r.heap.Lookup(a); ok {
		size = cl.SizeW() * 8
		if cl.Info != "" {
			info = cl.Info
		}
	}
	return fmt.Sprintf("%s:%d:%s", a, size, info)
}

// Flush writes buffered output and returns the first error seen.
func (r *Recorder) Flush() error {
	if err := r.w.Flush(); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

// Err returns the first error seen.
func (r *Recorder) Err() error {
	return r.err
}

// Roots returns the number of roots logged.
func (r *Recorder) Roots() int {
	return r.roots
}

// Visits returns the number of visit lines logged.
func (r *Recorder) Visits() int {
	return r.visits
}
