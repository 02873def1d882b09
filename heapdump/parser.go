// ABOUTME: Parser interface for heap snapshot formats
// ABOUTME: Defines the contract for pluggable snapshot loaders and the loaded snapshot

// Package heapdump loads paused-heap snapshots (closures plus roots) from
// files so the walker can run outside the process that owned the heap.
package heapdump

import (
	"io"

	"github.com/prateek/heaptrav/heap"
)

// Snapshot is a loaded heap together with its roots.
type Snapshot struct {
	Heap  *heap.MemHeap
	Roots heap.RootSet
	// Capabilities is the number of OS threads the runtime was running
	// with when the snapshot was taken.
	Capabilities int
}

// Parser is the interface for heap snapshot parsers
type Parser interface {
	// Name identifies the format in logs and errors.
	Name() string

	// CanParse checks if this parser can handle the given snapshot format
	// The reader should be treated as a preview - implementations should
	// read a small amount to detect format and not consume the entire stream
	CanParse(r io.Reader) bool

	// Parse reads the snapshot and builds the heap
	// The reader will be a fresh reader positioned at the start
	Parse(r io.Reader) (*Snapshot, error)
}
