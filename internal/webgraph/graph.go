// Package webgraph defines the external graph and harmonic-centrality
// table interfaces the centrality builder consumes (§3). Production
// graphs are treated as external collaborators; only a small in-memory
// implementation is provided here, for tests and small offline runs.
package webgraph

import (
	"context"
	"hash/fnv"
	"iter"
	"strconv"
	"sync"
)

// NodeID identifies one page in the graph.
type NodeID uint64

// Host projects a NodeID to the NodeID of its owning host. The mapping is
// deterministic, idempotent, and total: it never fails and always
// returns the same answer for the same input. This is a concrete
// stand-in for the real URL-to-registrable-domain mapping, which this
// repository does not implement; callers should not assume any relation
// to the node's real-world domain beyond "nodes on the same host project
// to the same value".
func (id NodeID) Host() NodeID {
	h := fnv.New64a()
	// NodeID alone carries no host information in this stand-in, so the
	// projection folds the ID down into a smaller keyspace to simulate
	// many pages sharing one host.
	h.Write([]byte(strconv.FormatUint(uint64(id)%(1<<20), 10)))
	return NodeID(h.Sum64())
}

// Edge is a directed link from From to To.
type Edge struct {
	From NodeID
	To   NodeID
}

// Node is one graph vertex.
type Node struct {
	ID NodeID
}

// Graph is the read-only surface the centrality builder needs: edge and
// node iteration, ingoing-edge lookup for a given node, and point lookup.
// Implementations must be safe for concurrent use by the builder's
// worker pool.
type Graph interface {
	Edges(ctx context.Context) iter.Seq[Edge]
	Nodes(ctx context.Context) iter.Seq2[Node, NodeID]
	IngoingEdges(id NodeID) []Edge
	Node(id NodeID) (Node, bool)
}

// MemGraph is a small in-memory Graph, built for tests and offline runs
// that fit in memory; it is not meant for production-scale graphs (spec
// §1: "treated as external collaborators").
type MemGraph struct {
	mu    sync.RWMutex
	nodes map[NodeID]Node
	in    map[NodeID][]Edge
	edges []Edge
}

// NewMemGraph builds an empty MemGraph.
func NewMemGraph() *MemGraph {
	return &MemGraph{
		nodes: make(map[NodeID]Node),
		in:    make(map[NodeID][]Edge),
	}
}

// AddNode registers id as a vertex, creating it if absent.
func (g *MemGraph) AddNode(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; !ok {
		g.nodes[id] = Node{ID: id}
	}
}

// AddEdge adds a directed edge, registering both endpoints as nodes if
// they are not already present.
func (g *MemGraph) AddEdge(from, to NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[from]; !ok {
		g.nodes[from] = Node{ID: from}
	}
	if _, ok := g.nodes[to]; !ok {
		g.nodes[to] = Node{ID: to}
	}
	e := Edge{From: from, To: to}
	g.edges = append(g.edges, e)
	g.in[to] = append(g.in[to], e)
}

func (g *MemGraph) Edges(ctx context.Context) iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		g.mu.RLock()
		edges := make([]Edge, len(g.edges))
		copy(edges, g.edges)
		g.mu.RUnlock()

		for _, e := range edges {
			if ctx.Err() != nil {
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (g *MemGraph) Nodes(ctx context.Context) iter.Seq2[Node, NodeID] {
	return func(yield func(Node, NodeID) bool) {
		g.mu.RLock()
		nodes := make([]Node, 0, len(g.nodes))
		for _, n := range g.nodes {
			nodes = append(nodes, n)
		}
		g.mu.RUnlock()

		for _, n := range nodes {
			if ctx.Err() != nil {
				return
			}
			if !yield(n, n.ID) {
				return
			}
		}
	}
}

func (g *MemGraph) IngoingEdges(id NodeID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.in[id]))
	copy(out, g.in[id])
	return out
}

func (g *MemGraph) Node(id NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}
