// ABOUTME: Calculates retained sizes using dominator tree analysis
// ABOUTME: A closure retains itself plus everything it dominates
package graph

import "github.com/prateek/heaptrav/heap"

// RetainedSize returns, for every reachable closure, the bytes that would
// become unreachable if it were removed: its own size plus the sizes of all
// closures it dominates.
func RetainedSize(g Graph) map[heap.Addr]uint64 {
	tree := DominatorTree(Dominators(g))
	retained := make(map[heap.Addr]uint64, len(tree))
	accumulate(g, tree, SuperRoot, retained)
	delete(retained, SuperRoot)
	return retained
}

// RetainedSizeSubsets computes retained sizes for the given closures only.
// Closures that are unknown or unreachable are left out of the result.
func RetainedSizeSubsets(g Graph, targets []heap.Addr) map[heap.Addr]uint64 {
	result := make(map[heap.Addr]uint64)
	if len(targets) == 0 {
		return result
	}

	idom := Dominators(g)
	tree := DominatorTree(idom)
	memo := make(map[heap.Addr]uint64)
	for _, t := range targets {
		if _, reachable := idom[t]; !reachable {
			continue
		}
		accumulate(g, tree, t, memo)
		result[t] = memo[t]
	}
	return result
}

// accumulate fills memo with retained sizes for the subtree under top,
// post-order and without recursion.
func accumulate(g Graph, tree map[heap.Addr][]heap.Addr, top heap.Addr, memo map[heap.Addr]uint64) {
	if _, done := memo[top]; done {
		return
	}
	type frame struct {
		node heap.Addr
		next int
	}
	stack := []frame{{node: top}}
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		kids := tree[f.node]
		if f.next < len(kids) {
			kid := kids[f.next]
			f.next++
			if _, done := memo[kid]; !done {
				stack = append(stack, frame{node: kid})
			}
			continue
		}

		var size uint64
		if n := g.Node(f.node); n != nil {
			size = n.Size
		}
		for _, kid := range kids {
			size += memo[kid]
		}
		memo[f.node] = size
		stack = stack[:len(stack)-1]
	}
}
