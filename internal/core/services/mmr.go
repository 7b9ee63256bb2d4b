package services

import (
	"math"

	"github.com/custodia-labs/pdfqa/internal/similarity"
)

// MaximalMarginalRelevance greedily selects up to k candidate indexes.
// Each step picks the candidate maximising
//
//	lambda*sim(query, c) - (1-lambda)*max(sim(c, s) for s in selected)
//
// Ties keep candidate order and no index is selected twice.
func MaximalMarginalRelevance(query []float32, candidates [][]float32, k int, lambda float64) []int {
	if k <= 0 || len(candidates) == 0 {
		return []int{}
	}
	k = min(k, len(candidates))

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = similarity.Cosine(query, c)
	}

	// redundancy[i] is the highest similarity of candidate i to any selected one.
	redundancy := make([]float64, len(candidates))
	used := make([]bool, len(candidates))
	selected := make([]int, 0, k)

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if used[i] {
				continue
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy[i]
			if score > bestScore {
				best, bestScore = i, score
			}
		}

		used[best] = true
		selected = append(selected, best)

		for i, c := range candidates {
			if used[i] {
				continue
			}
			if sim := similarity.Cosine(c, candidates[best]); len(selected) == 1 || sim > redundancy[i] {
				redundancy[i] = sim
			}
		}
	}

	return selected
}
