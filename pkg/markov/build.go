package markov

import (
	"fmt"
	"io"
)

// AddSequence records every consecutive pair of tokens as one observation of
// that transition. Pairs are not linked across calls: the first token of a
// sequence gets no incoming edge from the last token of a previous one.
// It does not finalize the graph.
func (g *Graph) AddSequence(tokens []string) {
	var previous *Node
	for _, token := range tokens {
		current := g.GetOrCreateNode(token)
		if previous != nil {
			g.IncrementEdge(previous, current)
		}
		previous = current
	}
}

// BuildGraph builds and finalizes a graph from an ordered token sequence in a
// single pass. It returns ErrEmptyInput if tokens is empty.
func BuildGraph(tokens []string) (*Graph, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}
	g := NewGraph()
	g.AddSequence(tokens)
	g.Finalize()
	return g, nil
}

// BuildGraphFromReader tokenizes at most limit tokens from r and builds a
// finalized graph from them. It also returns the token sequence, which is the
// usual seed pool for a Composer. A limit of 0 or less means DefaultMaxTokens.
func BuildGraphFromReader(t Tokenizer, r io.Reader, limit int) (*Graph, []string, error) {
	tokens, err := ReadTokens(t, r, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenizer error: %w", err)
	}
	g, err := BuildGraph(tokens)
	if err != nil {
		return nil, nil, err
	}
	return g, tokens, nil
}
