// ABOUTME: Lengauer-Tarjan dominator computation over the closure graph
// ABOUTME: Numbers nodes by an iterative DFS from the super-root so deep chains do not exhaust the stack

package graph

import "github.com/prateek/heaptrav/heap"

// Dominators computes the immediate dominator of every node reachable from
// the roots, using the Lengauer-Tarjan algorithm with path compression. The
// result maps each node to its immediate dominator; roots map to SuperRoot.
// References to closures missing from the graph are ignored.
func Dominators(g Graph) map[heap.Addr]heap.Addr {
	roots := g.Roots()
	succ := func(v heap.Addr) []heap.Addr {
		if v == SuperRoot {
			return roots
		}
		if n := g.Node(v); n != nil {
			return n.Refs
		}
		return nil
	}

	// Depth-first numbering. vertex[i] is the node numbered i and parent[i]
	// the number of its spanning tree parent.
	dfnum := map[heap.Addr]int{SuperRoot: 0}
	vertex := []heap.Addr{SuperRoot}
	parent := []int{-1}

	type frame struct {
		v    heap.Addr
		next int
	}
	stack := []frame{{v: SuperRoot}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		refs := succ(top.v)
		if top.next >= len(refs) {
			stack = stack[:len(stack)-1]
			continue
		}
		w := refs[top.next]
		top.next++
		if _, seen := dfnum[w]; seen || g.Node(w) == nil {
			continue
		}
		p := dfnum[top.v]
		dfnum[w] = len(vertex)
		vertex = append(vertex, w)
		parent = append(parent, p)
		stack = append(stack, frame{v: w})
	}

	n := len(vertex)
	preds := make([][]int, n)
	for i, v := range vertex {
		for _, w := range succ(v) {
			if j, ok := dfnum[w]; ok {
				preds[j] = append(preds[j], i)
			}
		}
	}

	semi := make([]int, n)
	ancestor := make([]int, n)
	best := make([]int, n)
	idom := make([]int, n)
	samedom := make([]int, n)
	bucket := make([][]int, n)
	for i := range vertex {
		semi[i] = i
		ancestor[i] = -1
		best[i] = i
		samedom[i] = i
	}

	// eval returns the ancestor of v with the lowest semidominator,
	// compressing the forest path on the way.
	var chain []int
	eval := func(v int) int {
		chain = chain[:0]
		for a := v; ancestor[a] != -1 && ancestor[ancestor[a]] != -1; a = ancestor[a] {
			chain = append(chain, a)
		}
		for k := len(chain) - 1; k >= 0; k-- {
			x := chain[k]
			a := ancestor[x]
			if semi[best[a]] < semi[best[x]] {
				best[x] = best[a]
			}
			ancestor[x] = ancestor[a]
		}
		return best[v]
	}

	for i := n - 1; i > 0; i-- {
		p := parent[i]
		s := p
		for _, v := range preds[i] {
			var candidate int
			if v <= i {
				candidate = v
			} else {
				candidate = semi[eval(v)]
			}
			if candidate < s {
				s = candidate
			}
		}
		semi[i] = s
		bucket[s] = append(bucket[s], i)
		ancestor[i] = p

		for _, v := range bucket[p] {
			y := eval(v)
			if semi[y] == semi[v] {
				idom[v] = p
			} else {
				samedom[v] = y
			}
		}
		bucket[p] = nil
	}

	result := make(map[heap.Addr]heap.Addr, n-1)
	for i := 1; i < n; i++ {
		if samedom[i] != i {
			idom[i] = idom[samedom[i]]
		}
		result[vertex[i]] = vertex[idom[i]]
	}
	return result
}
