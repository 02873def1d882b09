// ABOUTME: Dominator tree construction and queries
// ABOUTME: Provides children lists, depths and dominator chains
package graph

import (
	"sort"

	"github.com/prateek/heaptrav/heap"
)

// DominatorTree inverts an immediate-dominator map into children lists,
// each sorted by address. The super-root is always present.
func DominatorTree(idom map[heap.Addr]heap.Addr) map[heap.Addr][]heap.Addr {
	tree := map[heap.Addr][]heap.Addr{SuperRoot: {}}
	for node, dom := range idom {
		tree[dom] = append(tree[dom], node)
		if _, ok := tree[node]; !ok {
			tree[node] = []heap.Addr{}
		}
	}
	for _, kids := range tree {
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
	}
	return tree
}

// DominatorDepth returns each node's depth in the dominator tree. The
// super-root has depth 0 and the roots depth 1.
func DominatorDepth(tree map[heap.Addr][]heap.Addr) map[heap.Addr]int {
	depth := map[heap.Addr]int{SuperRoot: 0}
	queue := []heap.Addr{SuperRoot}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, kid := range tree[node] {
			depth[kid] = depth[node] + 1
			queue = append(queue, kid)
		}
	}
	return depth
}

// DominatorPath returns the chain of dominators from node up to and
// including the super-root.
func DominatorPath(idom map[heap.Addr]heap.Addr, node heap.Addr) []heap.Addr {
	path := []heap.Addr{node}
	for cur := node; cur != SuperRoot; {
		dom, ok := idom[cur]
		if !ok {
			dom = SuperRoot
		}
		path = append(path, dom)
		cur = dom
	}
	return path
}

// IsDominated reports whether every path from the roots to node passes
// through dominator. Every node dominates itself.
func IsDominated(idom map[heap.Addr]heap.Addr, node, dominator heap.Addr) bool {
	if node == dominator || dominator == SuperRoot {
		return true
	}
	for cur := node; ; {
		dom, ok := idom[cur]
		if !ok || dom == SuperRoot {
			return false
		}
		if dom == dominator {
			return true
		}
		cur = dom
	}
}
