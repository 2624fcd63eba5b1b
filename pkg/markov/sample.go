package markov

import (
	"math"
	"math/rand/v2"
	"sort"
)

// sampleOptions shapes a single weighted draw. A nil *sampleOptions, or one
// with temperature 1.0 and topK 0, is a plain draw proportional to weight.
type sampleOptions struct {
	temperature float64
	topK        int
}

func (o *sampleOptions) plain(n int) bool {
	return o == nil || (o.temperature == 1.0 && (o.topK <= 0 || o.topK >= n))
}

// chooseIndex picks an index i with probability W[i]/sum(W), given the
// cumulative weights C[i] = W[0]+...+W[i]. It draws r uniformly from
// [0, C[last]) with a single rng.IntN call and returns the smallest i with
// C[i] > r. The single draw per call keeps seeded walks reproducible.
func chooseIndex(rng *rand.Rand, cumulative []int) int {
	r := rng.IntN(cumulative[len(cumulative)-1])
	return sort.Search(len(cumulative), func(i int) bool {
		return cumulative[i] > r
	})
}

// choose returns an index into the table's neighbour list. The table must not
// be empty.
func (t *samplingTable) choose(rng *rand.Rand, opts *sampleOptions) int {
	if opts.plain(len(t.weights)) {
		return chooseIndex(rng, t.cumulative)
	}

	candidates := make([]int, len(t.weights))
	for i := range candidates {
		candidates[i] = i
	}

	// topK filtering
	if opts.topK > 0 && opts.topK < len(candidates) {
		sort.SliceStable(candidates, func(i, j int) bool {
			return t.weights[candidates[i]] > t.weights[candidates[j]]
		})
		candidates = candidates[:opts.topK]
	}

	if opts.temperature <= 0 { // Deterministic
		best, maxWeight := candidates[0], -1
		for _, c := range candidates {
			if t.weights[c] > maxWeight || (t.weights[c] == maxWeight && c < best) {
				maxWeight = t.weights[c]
				best = c
			}
		}
		return best
	}

	if opts.temperature == 1.0 {
		cumulative := make([]int, len(candidates))
		total := 0
		for i, c := range candidates {
			total += t.weights[c]
			cumulative[i] = total
		}
		return candidates[chooseIndex(rng, cumulative)]
	}

	// Temperature-based sampling in log space to avoid overflow on large weights.
	logProbabilities := make([]float64, len(candidates))
	maxLog := math.Inf(-1)
	for i, c := range candidates {
		lp := math.Log(float64(t.weights[c])) / opts.temperature
		logProbabilities[i] = lp
		if lp > maxLog {
			maxLog = lp
		}
	}
	var totalWeight float64
	weights := make([]float64, len(candidates))
	for i, lp := range logProbabilities {
		w := math.Exp(lp - maxLog)
		weights[i] = w
		totalWeight += w
	}
	r := rng.Float64() * totalWeight
	for i, c := range candidates {
		r -= weights[i]
		if r < 0 {
			return c
		}
	}
	return candidates[len(candidates)-1]
}
