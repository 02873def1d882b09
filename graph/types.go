// ABOUTME: Core data types for the closure reference graph
// ABOUTME: Defines Node and the super-root used by dominator analysis

// Package graph analyses the closure graph recorded by a heap walk: paths to
// roots, dominators, retained sizes and label-driven retention searches.
package graph

import "github.com/prateek/heaptrav/heap"

// SuperRoot is the synthetic node that points at every root. No closure
// lives at the nil address, so it cannot collide with a real node.
const SuperRoot = heap.Nil

// UnknownInfo labels nodes seen only as roots, without a visit line.
const UnknownInfo = "???"

// Node is one closure of the graph.
type Node struct {
	Addr heap.Addr   // Closure address, untagged
	Info string      // Info table label
	Size uint64      // Size in bytes
	Refs []heap.Addr // Closures this one references, in discovery order
}
