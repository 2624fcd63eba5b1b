package markov

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// NodeID is the stable handle of a node inside its Graph. IDs are handed out
// in the order tokens are first seen, starting at 0.
type NodeID int

// Node is a single vertex of a Graph, representing one distinct token.
// Nodes never reference each other directly; outgoing edges are keyed by the
// NodeID of their target.
type Node struct {
	id       NodeID
	value    string
	adjacent map[NodeID]int
	table    samplingTable
}

// samplingTable is the frozen view of a node's edges used for weighted draws.
// All three slices have the same length and are ordered by ascending NodeID.
type samplingTable struct {
	neighbours []NodeID
	weights    []int
	cumulative []int
}

// ID returns the node's handle within its graph.
func (n *Node) ID() NodeID { return n.id }

// Value returns the token the node represents.
func (n *Node) Value() string { return n.value }

// OutDegree returns the number of distinct successors currently recorded in
// the node's edge mapping.
func (n *Node) OutDegree() int { return len(n.adjacent) }

// Neighbours returns a copy of the neighbour list from the node's last
// finalized sampling table.
func (n *Node) Neighbours() []NodeID { return slices.Clone(n.table.neighbours) }

// Weights returns a copy of the weight list from the node's last finalized
// sampling table, parallel to Neighbours.
func (n *Node) Weights() []int { return slices.Clone(n.table.weights) }

// TotalWeight returns the sum of the finalized weights, i.e. the number of
// observed outgoing transitions as of the last Finalize.
func (n *Node) TotalWeight() int {
	if len(n.table.cumulative) == 0 {
		return 0
	}
	return n.table.cumulative[len(n.table.cumulative)-1]
}

// buildTable rebuilds the sampling table from the current edge mapping.
func (n *Node) buildTable() {
	neighbours := make([]NodeID, 0, len(n.adjacent))
	for id := range n.adjacent {
		neighbours = append(neighbours, id)
	}
	slices.Sort(neighbours)

	weights := make([]int, len(neighbours))
	cumulative := make([]int, len(neighbours))
	total := 0
	for i, id := range neighbours {
		weights[i] = n.adjacent[id]
		total += weights[i]
		cumulative[i] = total
	}
	n.table = samplingTable{neighbours: neighbours, weights: weights, cumulative: cumulative}
}

// Graph is a weighted directed graph over word tokens. Each distinct token
// maps to exactly one Node, and the weight of an edge a->b is the number of
// times b was observed directly after a.
//
// A Graph is not safe for concurrent mutation. Once Finalize has returned and
// no further edges are inserted, NextFrom may be called concurrently as long
// as every goroutine uses its own *rand.Rand.
type Graph struct {
	index     map[string]NodeID
	nodes     []*Node
	finalized bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]NodeID)}
}

// GetOrCreateNode returns the node for token, creating it with no outgoing
// edges if it does not exist yet. Any string, including "", is a valid token.
func (g *Graph) GetOrCreateNode(token string) *Node {
	if id, ok := g.index[token]; ok {
		return g.nodes[id]
	}
	n := &Node{
		id:       NodeID(len(g.nodes)),
		value:    token,
		adjacent: make(map[NodeID]int),
	}
	g.nodes = append(g.nodes, n)
	g.index[token] = n.id
	return n
}

// Lookup returns the node for token without creating it.
func (g *Graph) Lookup(token string) (*Node, bool) {
	id, ok := g.index[token]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Node returns the node with the given id, or nil if the id is out of range.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Tokens returns every token in the graph in NodeID order.
func (g *Graph) Tokens() []string {
	tokens := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		tokens[i] = n.value
	}
	return tokens
}

// IncrementEdge adds one observation of the transition src -> dst, creating
// the edge with weight 1 if it is absent. Only src is modified.
//
// Calling IncrementEdge after Finalize leaves src's sampling table stale until
// Finalize is called again.
func (g *Graph) IncrementEdge(src, dst *Node) {
	src.adjacent[dst.id]++
}

// Weight returns the current weight of the edge src -> dst, or 0 if there is
// no such edge.
func (g *Graph) Weight(src, dst *Node) int {
	return src.adjacent[dst.id]
}

// Finalize builds the sampling table of every node from its current edge
// mapping. It must be called after all edges are inserted and before any
// sampling. Calling it again rebuilds every table, which is how edges added
// after a previous Finalize become visible to NextFrom.
func (g *Graph) Finalize() {
	for _, n := range g.nodes {
		n.buildTable()
	}
	g.finalized = true
}

// Finalized reports whether Finalize has run at least once.
func (g *Graph) Finalized() bool { return g.finalized }

// NextFrom draws a successor of n with probability proportional to the edge
// weight, using rng as the only source of randomness. The sampling table is
// never modified, so repeated draws are independent.
//
// It returns ErrUnfinalizedGraph if Finalize has never run and
// ErrEmptyTransition if n has no successors in its sampling table.
func (g *Graph) NextFrom(rng *rand.Rand, n *Node) (*Node, error) {
	return g.next(rng, n, nil)
}

func (g *Graph) next(rng *rand.Rand, n *Node, opts *sampleOptions) (*Node, error) {
	if !g.finalized {
		return nil, ErrUnfinalizedGraph
	}
	if len(n.table.neighbours) == 0 {
		return nil, fmt.Errorf("%w: token %q", ErrEmptyTransition, n.value)
	}
	idx := n.table.choose(rng, opts)
	return g.nodes[n.table.neighbours[idx]], nil
}
