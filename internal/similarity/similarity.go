// Package similarity scores vectors for the brute-force vector stores and MMR.
package similarity

import (
	"math"
	"sort"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// Score compares a and b under the metric. Higher is always more similar.
// Euclidean distance d is reported as 1/(1+d).
func Score(metric domain.Metric, a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	switch metric {
	case domain.MetricDot:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return dot

	case domain.MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1 / (1 + math.Sqrt(sum))

	default:
		return Cosine(a, b)
	}
}

// Cosine returns the cosine of the angle between a and b.
// Zero vectors and vectors of different lengths score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Scored is a candidate with its score and insertion position.
type Scored struct {
	Match domain.VectorMatch
	Order int
}

// TopK sorts candidates by descending score, breaking ties by insertion
// order, and keeps the first k.
func TopK(candidates []Scored, k int) []domain.VectorMatch {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Match.Score != candidates[j].Match.Score {
			return candidates[i].Match.Score > candidates[j].Match.Score
		}
		return candidates[i].Order < candidates[j].Order
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	matches := make([]domain.VectorMatch, len(candidates))
	for i, c := range candidates {
		matches[i] = c.Match
	}
	return matches
}
