// ABOUTME: Label-driven leak searches over the closure graph
// ABOUTME: Retainer trees walk referrers upward; reach search finds closures holding many labelled targets

package graph

import "github.com/prateek/heaptrav/heap"

// DefaultRetainerDepth is how many referrer levels Retainers reports.
const DefaultRetainerDepth = 3

// DefaultReachThreshold is the number of distinct targets that makes a
// closure worth reporting in ReachSearch.
const DefaultReachThreshold = 32

// Retainer is a closure together with the closures that reference it.
type Retainer struct {
	Addr heap.Addr
	Info string
	By   []Retainer
}

// Retainers returns, for every closure labelled info, the tree of its
// referrers down to depth levels. Referrers are not deduplicated across
// branches, so a closure reachable through two referrers appears twice.
func Retainers(g Graph, info string, depth int) []Retainer {
	reverse := BuildReverseEdges(g)

	var build func(a heap.Addr, level int) Retainer
	build = func(a heap.Addr, level int) Retainer {
		r := Retainer{Addr: a, Info: UnknownInfo}
		if n := g.Node(a); n != nil {
			r.Info = n.Info
		}
		if level < depth {
			for _, ref := range reverse[a] {
				r.By = append(r.By, build(ref, level+1))
			}
		}
		return r
	}

	var out []Retainer
	g.ForEachNode(func(n *Node) {
		if n.Info == info {
			out = append(out, build(n.Addr, 0))
		}
	})
	return out
}

// ReachHit is a closure from which at least the threshold number of
// distinct target closures are reachable without passing through an
// earlier hit.
type ReachHit struct {
	Addr heap.Addr
	// Path is the chain from the root that led here, root first and
	// excluding Addr.
	Path []heap.Addr
	// Targets is the number of distinct targets found below the closure.
	Targets int
	// PerRef is the number of targets each reference contributed.
	PerRef []int
	Refs   []heap.Addr
}

// Depth is the length of the chain from the root.
func (h ReachHit) Depth() int { return len(h.Path) }

type reachState uint8

const (
	reachUnseen reachState = iota
	reachActive
	reachDone
)

// ReachSearch walks the graph depth-first from each root and reports every
// closure that can reach threshold or more distinct closures labelled info.
// A target stops the descent. A reported closure contributes no targets to
// the closure it was reached from, so that ancestor is judged only on what
// the hit does not already explain; it keeps its full target set for any
// closure that reaches it later. Each closure is reported at most once.
// Cycles contribute nothing while a closure is still being explored.
func ReachSearch(g Graph, info string, threshold int) []ReachHit {
	if threshold <= 0 {
		threshold = DefaultReachThreshold
	}

	type targets map[heap.Addr]struct{}
	state := make(map[heap.Addr]reachState)
	found := make(map[heap.Addr]targets)

	type frame struct {
		addr   heap.Addr
		refs   []heap.Addr
		next   int
		acc    targets
		perRef []int
	}

	var hits []ReachHit
	var stack []frame

	// enter returns the result for a closure that needs no exploration, or
	// pushes a frame for it and reports false.
	enter := func(a heap.Addr) (targets, bool) {
		n := g.Node(a)
		if n != nil && n.Info == info {
			return targets{a: {}}, true
		}
		switch state[a] {
		case reachActive:
			return nil, true
		case reachDone:
			return found[a], true
		}
		state[a] = reachActive
		var refs []heap.Addr
		if n != nil {
			refs = n.Refs
		}
		stack = append(stack, frame{addr: a, refs: refs, acc: targets{}})
		return nil, false
	}

	// finish merges a child's result into the frame on top of the stack.
	finish := func(res targets) {
		top := &stack[len(stack)-1]
		for t := range res {
			top.acc[t] = struct{}{}
		}
		top.perRef = append(top.perRef, len(res))
	}

	for _, root := range g.Roots() {
		if _, done := enter(root); done {
			continue
		}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.refs) {
				ref := top.refs[top.next]
				top.next++
				if res, done := enter(ref); done {
					finish(res)
				}
				continue
			}

			cur := *top
			stack = stack[:len(stack)-1]
			state[cur.addr] = reachDone

			result := cur.acc
			if len(cur.acc) >= threshold {
				path := make([]heap.Addr, len(stack))
				for i := range stack {
					path[i] = stack[i].addr
				}
				hits = append(hits, ReachHit{
					Addr:    cur.addr,
					Path:    path,
					Targets: len(cur.acc),
					PerRef:  cur.perRef,
					Refs:    cur.refs,
				})
				result = targets{}
			}
			found[cur.addr] = cur.acc
			if len(stack) > 0 {
				finish(result)
			}
		}
	}

	return hits
}
