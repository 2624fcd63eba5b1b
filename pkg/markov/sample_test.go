package markov

import (
	"testing"
)

func TestChooseIndex(t *testing.T) {
	// Weights 1, 2, 3.
	cumulative := []int{1, 3, 6}
	rng := newTestRand(3)

	const draws = 60000
	counts := make([]int, len(cumulative))
	for i := 0; i < draws; i++ {
		idx := chooseIndex(rng, cumulative)
		if idx < 0 || idx >= len(cumulative) {
			t.Fatalf("chooseIndex returned out of range index %d", idx)
		}
		counts[idx]++
	}

	for i, want := range []float64{1.0 / 6, 2.0 / 6, 3.0 / 6} {
		got := float64(counts[i]) / draws
		if got < want-0.02 || got > want+0.02 {
			t.Errorf("index %d drawn with frequency %.3f, want about %.3f", i, got, want)
		}
	}
}

func TestChooseIndexSingle(t *testing.T) {
	rng := newTestRand(1)
	for i := 0; i < 100; i++ {
		if idx := chooseIndex(rng, []int{5}); idx != 0 {
			t.Fatalf("expected index 0 for a single neighbour, got %d", idx)
		}
	}
}

func TestChooseWithOptions(t *testing.T) {
	table := samplingTable{
		neighbours: []NodeID{0, 1, 2, 3},
		weights:    []int{2, 5, 5, 1},
		cumulative: []int{2, 7, 12, 13},
	}

	testCases := []struct {
		name    string
		opts    *sampleOptions
		allowed map[int]bool
	}{
		{
			name:    "Deterministic picks lowest index among heaviest",
			opts:    &sampleOptions{temperature: 0},
			allowed: map[int]bool{1: true},
		},
		{
			name:    "Top-1 weighted",
			opts:    &sampleOptions{temperature: 1.0, topK: 1},
			allowed: map[int]bool{1: true},
		},
		{
			name:    "Top-2 weighted",
			opts:    &sampleOptions{temperature: 1.0, topK: 2},
			allowed: map[int]bool{1: true, 2: true},
		},
		{
			name:    "Top-2 with temperature",
			opts:    &sampleOptions{temperature: 0.5, topK: 2},
			allowed: map[int]bool{1: true, 2: true},
		},
		{
			name:    "High temperature keeps every neighbour reachable",
			opts:    &sampleOptions{temperature: 3.0},
			allowed: map[int]bool{0: true, 1: true, 2: true, 3: true},
		},
		{
			name:    "Top-K larger than table is plain",
			opts:    &sampleOptions{temperature: 1.0, topK: 10},
			allowed: map[int]bool{0: true, 1: true, 2: true, 3: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rng := newTestRand(11)
			seen := make(map[int]bool)
			for i := 0; i < 2000; i++ {
				idx := table.choose(rng, tc.opts)
				if !tc.allowed[idx] {
					t.Fatalf("choose returned index %d, allowed %v", idx, tc.allowed)
				}
				seen[idx] = true
			}
			if len(seen) != len(tc.allowed) {
				t.Errorf("expected every allowed index to be drawn, saw %v", seen)
			}
		})
	}
}
