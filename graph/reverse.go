// ABOUTME: Builds reverse edges for graph traversal
// ABOUTME: Maps closures to their referrers for paths-to-roots and retainer trees

package graph

import "github.com/prateek/heaptrav/heap"

// ReverseEdges maps each closure to the closures that reference it, in
// address order of the referrer.
type ReverseEdges map[heap.Addr][]heap.Addr

// BuildReverseEdges creates a map of reverse edges
func BuildReverseEdges(g Graph) ReverseEdges {
	reverse := make(ReverseEdges)
	g.ForEachNode(func(n *Node) {
		for _, to := range n.Refs {
			reverse[to] = append(reverse[to], n.Addr)
		}
	})
	return reverse
}
