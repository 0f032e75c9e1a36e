package webgraph

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNodeIDHostIsDeterministicAndTotal(t *testing.T) {
	var id NodeID = 12345
	h1 := id.Host()
	h2 := id.Host()
	if h1 != h2 {
		t.Fatalf("Host() not idempotent: %v != %v", h1, h2)
	}
}

func TestMemGraphEdgesAndIngoing(t *testing.T) {
	g := NewMemGraph()
	g.AddEdge(1, 2)
	g.AddEdge(3, 2)
	g.AddEdge(2, 3)

	in := g.IngoingEdges(2)
	if len(in) != 2 {
		t.Fatalf("got %d ingoing edges for node 2, want 2", len(in))
	}

	var count int
	for range g.Edges(context.Background()) {
		count++
	}
	if count != 3 {
		t.Fatalf("got %d edges iterated, want 3", count)
	}
}

func TestMemGraphNodesIteration(t *testing.T) {
	g := NewMemGraph()
	g.AddEdge(1, 2)
	g.AddNode(9)

	seen := make(map[NodeID]bool)
	for n, id := range g.Nodes(context.Background()) {
		if n.ID != id {
			t.Fatalf("Nodes yielded mismatched (Node, NodeID): %v, %v", n, id)
		}
		seen[id] = true
	}
	for _, want := range []NodeID{1, 2, 9} {
		if !seen[want] {
			t.Errorf("node %v missing from iteration", want)
		}
	}
}

func TestMemGraphNodeLookup(t *testing.T) {
	g := NewMemGraph()
	g.AddEdge(1, 2)

	if _, ok := g.Node(1); !ok {
		t.Error("expected node 1 to be present")
	}
	if _, ok := g.Node(99); ok {
		t.Error("expected node 99 to be absent")
	}
}

func TestMemHarmonicTable(t *testing.T) {
	table := NewMemHarmonicTable(map[NodeID]float64{1: 0.5, 2: 0.25})

	if v, ok := table.Get(1); !ok || v != 0.5 {
		t.Errorf("Get(1) = %v, %v; want 0.5, true", v, ok)
	}
	if _, ok := table.Get(99); ok {
		t.Error("Get(99) should be absent")
	}
}

func TestBoltHarmonicTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harmonic.bolt")

	table, err := OpenBoltHarmonicTable(path)
	if err != nil {
		t.Fatalf("OpenBoltHarmonicTable: %v", err)
	}
	defer table.Close()

	if err := table.Put(1, 0.75); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if v, ok := table.Get(1); !ok || v != 0.75 {
		t.Errorf("Get(1) = %v, %v; want 0.75, true", v, ok)
	}
	if _, ok := table.Get(2); ok {
		t.Error("Get(2) should be absent")
	}
}
