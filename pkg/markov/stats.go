package markov

// GraphStats holds aggregated statistics for a single graph, computed from
// the finalized sampling tables.
type GraphStats struct {
	Nodes          int `json:"nodes"`           // The number of distinct tokens
	Edges          int `json:"edges"`           // The number of distinct token->token transitions
	TotalFrequency int `json:"total_frequency"` // The sum of all edge weights; the number of observed transitions
	SelfLoops      int `json:"self_loops"`      // The number of tokens with an edge to themselves
	DeadEnds       int `json:"dead_ends"`       // The number of tokens with no successors
}

// Stats returns a snapshot of statistics for g. Edges added after the last
// Finalize are not counted.
func Stats(g *Graph) GraphStats {
	stats := GraphStats{Nodes: g.Len()}
	for _, n := range g.nodes {
		stats.Edges += len(n.table.neighbours)
		stats.TotalFrequency += n.TotalWeight()
		if len(n.table.neighbours) == 0 {
			stats.DeadEnds++
		}
		for _, id := range n.table.neighbours {
			if id == n.id {
				stats.SelfLoops++
				break
			}
		}
	}
	return stats
}
