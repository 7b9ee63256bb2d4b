package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/pdfqa/internal/similarity"
)

func TestMaximalMarginalRelevance(t *testing.T) {
	query := []float32{1, 0}
	// Two near-duplicates of the query and one diverse candidate.
	candidates := [][]float32{
		{1, 0},
		{0.99, 0.01},
		{0.6, 0.8},
	}

	t.Run("prefers diversity after the first pick", func(t *testing.T) {
		got := MaximalMarginalRelevance(query, candidates, 2, 0.3)
		assert.Equal(t, []int{0, 2}, got)
	})

	t.Run("lambda one is plain similarity", func(t *testing.T) {
		got := MaximalMarginalRelevance(query, candidates, 3, 1)
		assert.Equal(t, []int{0, 1, 2}, got)
	})

	t.Run("never duplicates", func(t *testing.T) {
		got := MaximalMarginalRelevance(query, candidates, 10, 0.3)
		assert.Len(t, got, 3)
		assert.ElementsMatch(t, []int{0, 1, 2}, got)
	})

	t.Run("ties keep candidate order", func(t *testing.T) {
		same := [][]float32{{1, 0}, {1, 0}, {1, 0}}
		got := MaximalMarginalRelevance(query, same, 3, 0.5)
		assert.Equal(t, []int{0, 1, 2}, got)
	})

	t.Run("k zero", func(t *testing.T) {
		assert.Empty(t, MaximalMarginalRelevance(query, candidates, 0, 0.5))
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Empty(t, MaximalMarginalRelevance(query, nil, 3, 0.5))
	})
}

func TestMaximalMarginalRelevance_GreedyChoice(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := [][]float32{
		{0.9, 0.1, 0},
		{0.9, 0.1, 0.01},
		{0.5, 0, 0.5},
		{0, 1, 0},
	}
	lambda := 0.5

	got := MaximalMarginalRelevance(query, candidates, 3, lambda)

	// Recompute each step by brute force.
	var selected []int
	used := map[int]bool{}
	for range 3 {
		best, bestScore := -1, -1e9
		for i, c := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			for j, s := range selected {
				sim := similarity.Cosine(c, candidates[s])
				if j == 0 || sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*similarity.Cosine(query, c) - (1-lambda)*redundancy
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		used[best] = true
		selected = append(selected, best)
	}

	assert.Equal(t, selected, got)
}
