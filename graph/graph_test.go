// ABOUTME: Tests for the graph data structures and document import
// ABOUTME: Validates node storage, ordering, roots and edge deduplication

package graph

import (
	"reflect"
	"strings"
	"testing"

	"github.com/prateek/heaptrav/dump"
	"github.com/prateek/heaptrav/heap"
)

func node(a heap.Addr, info string, size uint64, refs ...heap.Addr) *Node {
	return &Node{Addr: a, Info: info, Size: size, Refs: refs}
}

func build(roots []heap.Addr, nodes ...*Node) *MemGraph {
	g := NewMemGraph()
	for _, n := range nodes {
		g.AddNode(n)
	}
	g.SetRoots(roots)
	return g
}

func TestGraphInterface(t *testing.T) {
	g := NewMemGraph()
	g.AddNode(node(0x20, "child", 16))
	g.AddNode(node(0x10, "root", 24, 0x20))
	g.AddNode(nil)

	n := g.Node(0x10)
	if n == nil {
		t.Fatal("Expected to retrieve node 0x10")
	}
	if n.Info != "root" || n.Size != 24 {
		t.Errorf("Unexpected node %+v", n)
	}
	if g.NumNodes() != 2 {
		t.Errorf("Expected 2 nodes, got %d", g.NumNodes())
	}

	var order []heap.Addr
	g.ForEachNode(func(n *Node) { order = append(order, n.Addr) })
	if !reflect.DeepEqual(order, []heap.Addr{0x10, 0x20}) {
		t.Errorf("Expected address order, got %v", order)
	}

	roots := []heap.Addr{0x10}
	g.SetRoots(roots)
	roots[0] = 0x99
	if got := g.Roots(); len(got) != 1 || got[0] != 0x10 {
		t.Errorf("Expected roots [0x10], got %v", got)
	}
}

func TestNodeReplacement(t *testing.T) {
	g := NewMemGraph()
	g.AddNode(node(0x10, "first", 8))
	g.AddNode(node(0x10, "second", 16))

	if g.NumNodes() != 1 {
		t.Errorf("Expected 1 node after duplicate address, got %d", g.NumNodes())
	}
	if g.Node(0x10).Info != "second" {
		t.Errorf("Expected later node to replace earlier, got %s", g.Node(0x10).Info)
	}
	if g.Node(0x999) != nil {
		t.Error("Expected nil for missing node")
	}
}

func TestFromDocument(t *testing.T) {
	log := strings.Join([]string{
		"### root 0x10",
		"### visit 0x10:16:Just <- 0x10:16:Just",
		"### visit 0x20:16:I# <- 0x10:16:Just",
		"### visit 0x20:16:I# <- 0x10:16:Just",
		"### root 0x30",
		"### visit 0x30:24:Pair <- 0x30:24:Pair",
		"### visit 0x20:16:I# <- 0x30:24:Pair",
		"### visit 0x40:8:??? <- 0x30:24:Pair",
	}, "\n")
	doc, err := dump.Parse(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	doc.Roots = append(doc.Roots, 0x50)

	g := FromDocument(doc)

	if g.NumNodes() != 5 {
		t.Errorf("Expected 5 nodes, got %d", g.NumNodes())
	}
	if !reflect.DeepEqual(g.Roots(), []heap.Addr{0x10, 0x30, 0x50}) {
		t.Errorf("Unexpected roots %v", g.Roots())
	}
	if refs := g.Node(0x10).Refs; !reflect.DeepEqual(refs, []heap.Addr{0x20}) {
		t.Errorf("Expected duplicate edge to collapse, got %v", refs)
	}
	if refs := g.Node(0x30).Refs; !reflect.DeepEqual(refs, []heap.Addr{0x20, 0x40}) {
		t.Errorf("Expected refs in discovery order, got %v", refs)
	}
	if n := g.Node(0x30); n.Info != "Pair" || n.Size != 24 {
		t.Errorf("Unexpected node %+v", n)
	}
	if n := g.Node(0x50); n == nil || n.Info != UnknownInfo {
		t.Errorf("Expected bare root to be labelled unknown, got %+v", n)
	}
}

func TestBuildReverseEdges(t *testing.T) {
	g := build([]heap.Addr{0x10},
		node(0x10, "a", 8, 0x30),
		node(0x20, "b", 8, 0x30),
		node(0x30, "c", 8),
	)
	rev := BuildReverseEdges(g)
	if !reflect.DeepEqual(rev[0x30], []heap.Addr{0x10, 0x20}) {
		t.Errorf("Expected referrers [0x10 0x20], got %v", rev[0x30])
	}
	if len(rev[0x10]) != 0 {
		t.Errorf("Expected no referrers for root, got %v", rev[0x10])
	}
}

func TestHistogram(t *testing.T) {
	g := build(nil,
		node(0x10, "I#", 16),
		node(0x20, "I#", 16),
		node(0x30, "(:)", 24),
		node(0x40, "Bin", 32),
		node(0x50, "Tip", 8),
	)
	want := []LabelStat{
		{Info: "Bin", Count: 1, Bytes: 32},
		{Info: "I#", Count: 2, Bytes: 32},
		{Info: "(:)", Count: 1, Bytes: 24},
		{Info: "Tip", Count: 1, Bytes: 8},
	}
	if got := Histogram(g); !reflect.DeepEqual(got, want) {
		t.Errorf("Histogram() = %v, want %v", got, want)
	}
}
