// ABOUTME: Tests for the paths-to-roots search
// ABOUTME: Validates BFS ordering, cycle handling and path limits

package graph

import (
	"reflect"
	"testing"

	"github.com/prateek/heaptrav/heap"
)

func path(addrs ...heap.Addr) Path { return Path{Addrs: addrs} }

func TestPathsToRoots(t *testing.T) {
	// 0x10 (root) -> 0x20 -> 0x30
	//                     -> 0x40
	g := build([]heap.Addr{0x10},
		node(0x10, "root", 8, 0x20),
		node(0x20, "middle", 8, 0x30, 0x40),
		node(0x30, "leaf1", 8),
		node(0x40, "leaf2", 8),
	)

	tests := []struct {
		name     string
		from     heap.Addr
		maxPaths int
		want     []Path
	}{
		{name: "root itself", from: 0x10, maxPaths: 5, want: []Path{path(0x10)}},
		{name: "one hop", from: 0x20, maxPaths: 5, want: []Path{path(0x20, 0x10)}},
		{name: "two hops", from: 0x30, maxPaths: 5, want: []Path{path(0x30, 0x20, 0x10)}},
		{name: "sibling", from: 0x40, maxPaths: 5, want: []Path{path(0x40, 0x20, 0x10)}},
		{name: "zero paths requested", from: 0x30, maxPaths: 0, want: nil},
		{name: "unknown closure", from: 0x99, maxPaths: 5, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := PathsToRoots(g, tt.from, tt.maxPaths)
			if !reflect.DeepEqual(paths, tt.want) {
				t.Errorf("PathsToRoots() = %v, want %v", paths, tt.want)
			}
		})
	}
}

func TestPathsWithCycles(t *testing.T) {
	g := build([]heap.Addr{0x10},
		node(0x10, "root", 8, 0x20),
		node(0x20, "cycle1", 8, 0x30),
		node(0x30, "cycle2", 8, 0x20),
	)

	paths := PathsToRoots(g, 0x30, 5)
	want := []Path{path(0x30, 0x20, 0x10)}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("PathsToRoots() with cycle = %v, want %v", paths, want)
	}
}

func TestUnreachableClosure(t *testing.T) {
	g := build([]heap.Addr{0x10},
		node(0x10, "root", 8, 0x20),
		node(0x20, "connected", 8),
		node(0x30, "disconnected", 8),
	)

	if paths := PathsToRoots(g, 0x30, 5); len(paths) != 0 {
		t.Errorf("Expected no paths for unreachable closure, got %v", paths)
	}
}

func TestShortestPathsFirst(t *testing.T) {
	// Two roots reach 0x50: one directly and one through a chain.
	g := build([]heap.Addr{0x10, 0x20},
		node(0x10, "far", 8, 0x30),
		node(0x30, "hop1", 8, 0x40),
		node(0x40, "hop2", 8, 0x50),
		node(0x20, "near", 8, 0x50),
		node(0x50, "target", 8),
	)

	paths := PathsToRoots(g, 0x50, 5)
	want := []Path{path(0x50, 0x20), path(0x50, 0x40, 0x30, 0x10)}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("PathsToRoots() = %v, want %v", paths, want)
	}
	if paths[1].Len() != 3 {
		t.Errorf("Expected path length 3, got %d", paths[1].Len())
	}
}

func TestMaxPaths(t *testing.T) {
	g := build([]heap.Addr{0x10, 0x20, 0x30},
		node(0x10, "root1", 8, 0x40),
		node(0x20, "root2", 8, 0x40),
		node(0x30, "root3", 8, 0x40),
		node(0x40, "target", 8),
	)

	if paths := PathsToRoots(g, 0x40, 2); len(paths) != 2 {
		t.Errorf("Expected at most 2 paths, got %d", len(paths))
	}
}

func TestSelfReference(t *testing.T) {
	g := build([]heap.Addr{0x10},
		node(0x10, "root", 8, 0x20),
		node(0x20, "self", 8, 0x20),
	)

	paths := PathsToRoots(g, 0x20, 5)
	want := []Path{path(0x20, 0x10)}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("PathsToRoots() with self-reference = %v, want %v", paths, want)
	}
}
