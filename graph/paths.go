// ABOUTME: BFS search for reference chains from a closure back to its roots
// ABOUTME: Returns the shortest simple paths first, up to a caller-chosen count

package graph

import "github.com/prateek/heaptrav/heap"

// Path is a reference chain from a target closure to a root. Addrs[0] is the
// target and the last entry is the root; each entry references the one
// before it.
type Path struct {
	Addrs []heap.Addr
}

// Len returns the number of references in the path.
func (p Path) Len() int {
	if len(p.Addrs) == 0 {
		return 0
	}
	return len(p.Addrs) - 1
}

// PathsToRoots returns up to maxPaths simple paths from closure from to a
// root, shortest first. A closure that is itself a root yields one path of
// length zero.
func PathsToRoots(g Graph, from heap.Addr, maxPaths int) []Path {
	if maxPaths <= 0 || g.Node(from) == nil {
		return nil
	}

	rootSet := make(map[heap.Addr]bool)
	for _, r := range g.Roots() {
		rootSet[r] = true
	}
	if rootSet[from] {
		return []Path{{Addrs: []heap.Addr{from}}}
	}

	reverse := BuildReverseEdges(g)

	type searchNode struct {
		addr heap.Addr
		path []heap.Addr
	}

	var result []Path
	queue := []searchNode{{addr: from, path: []heap.Addr{from}}}

	for len(queue) > 0 && len(result) < maxPaths {
		cur := queue[0]
		queue = queue[1:]

		for _, ref := range reverse[cur.addr] {
			if onPath(cur.path, ref) {
				continue
			}

			next := make([]heap.Addr, len(cur.path)+1)
			copy(next, cur.path)
			next[len(cur.path)] = ref

			if rootSet[ref] {
				result = append(result, Path{Addrs: next})
				if len(result) >= maxPaths {
					break
				}
				continue
			}
			queue = append(queue, searchNode{addr: ref, path: next})
		}
	}

	return result
}

func onPath(path []heap.Addr, a heap.Addr) bool {
	for _, p := range path {
		if p == a {
			return true
		}
	}
	return false
}
