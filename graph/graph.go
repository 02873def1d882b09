// ABOUTME: Graph interface and in-memory implementation
// ABOUTME: Builds the closure graph from a walk document

package graph

import (
	"sort"
	"sync"

	"github.com/prateek/heaptrav/dump"
	"github.com/prateek/heaptrav/heap"
)

// Graph is a closure reference graph with an ordered root list.
type Graph interface {
	// AddNode adds or replaces a node.
	AddNode(n *Node)

	// Node returns the node at a, or nil.
	Node(a heap.Addr) *Node

	// NumNodes returns the total number of nodes.
	NumNodes() int

	// ForEachNode visits every node in address order.
	ForEachNode(fn func(*Node))

	// SetRoots replaces the roots.
	SetRoots(roots []heap.Addr)

	// Roots returns the roots in walk order.
	Roots() []heap.Addr
}

// MemGraph is an in-memory implementation of Graph
type MemGraph struct {
	mu    sync.RWMutex
	nodes map[heap.Addr]*Node
	roots []heap.Addr
}

// NewMemGraph creates an empty graph.
func NewMemGraph() *MemGraph {
	return &MemGraph{
		nodes: make(map[heap.Addr]*Node),
	}
}

// AddNode implements Graph.
func (g *MemGraph) AddNode(n *Node) {
	if n == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.Addr] = n
}

// Node implements Graph.
func (g *MemGraph) Node(a heap.Addr) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[a]
}

// NumNodes implements Graph.
func (g *MemGraph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// ForEachNode implements Graph. Address order keeps reports stable.
func (g *MemGraph) ForEachNode(fn func(*Node)) {
	g.mu.RLock()
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	g.mu.RUnlock()

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Addr < nodes[j].Addr })
	for _, n := range nodes {
		fn(n)
	}
}

// SetRoots implements Graph.
func (g *MemGraph) SetRoots(roots []heap.Addr) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = append([]heap.Addr(nil), roots...)
}

// Roots implements Graph.
func (g *MemGraph) Roots() []heap.Addr {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.roots
}

// FromDocument builds a graph from a walk document. Every labelled closure
// and every root becomes a node; repeated edges collapse into one reference.
func FromDocument(doc *dump.Document) *MemGraph {
	g := NewMemGraph()
	for a, info := range doc.Infos {
		g.nodes[a] = &Node{Addr: a, Info: info, Size: doc.Lengths[a]}
	}
	for _, r := range doc.Roots {
		if _, ok := g.nodes[r]; !ok {
			g.nodes[r] = &Node{Addr: r, Info: UnknownInfo}
		}
	}

	seen := make(map[dump.Edge]struct{}, len(doc.Edges))
	for _, e := range doc.Edges {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		from, ok := g.nodes[e.From]
		if !ok {
			from = &Node{Addr: e.From, Info: UnknownInfo}
			g.nodes[e.From] = from
		}
		if _, ok := g.nodes[e.To]; !ok {
			g.nodes[e.To] = &Node{Addr: e.To, Info: UnknownInfo}
		}
		from.Refs = append(from.Refs, e.To)
	}

	g.roots = append([]heap.Addr(nil), doc.Roots...)
	return g
}
