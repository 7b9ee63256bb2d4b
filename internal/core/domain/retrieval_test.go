package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetrievalOptions(t *testing.T) {
	opts := DefaultRetrievalOptions()

	assert.Equal(t, 6, opts.K)
	assert.Equal(t, 20, opts.FetchK)
	assert.InDelta(t, 0.5, opts.LambdaMult, 1e-9)
	assert.Equal(t, StrategyMMR, opts.Strategy)
}

func TestRetrievalOptions_WithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		in       RetrievalOptions
		expected RetrievalOptions
	}{
		{
			name:     "zero value takes defaults",
			in:       RetrievalOptions{},
			expected: DefaultRetrievalOptions(),
		},
		{
			name:     "fetch_k raised to k",
			in:       RetrievalOptions{K: 30, FetchK: 10, LambdaMult: 0.7, Strategy: StrategyMMR},
			expected: RetrievalOptions{K: 30, FetchK: 30, LambdaMult: 0.7, LambdaSet: true, Strategy: StrategyMMR},
		},
		{
			name:     "out of range lambda reset",
			in:       RetrievalOptions{K: 4, FetchK: 8, LambdaMult: 1.5, Strategy: StrategySimilarity},
			expected: RetrievalOptions{K: 4, FetchK: 8, LambdaMult: 0.5, LambdaSet: true, Strategy: StrategySimilarity},
		},
		{
			name:     "explicit zero lambda kept",
			in:       RetrievalOptions{K: 2, FetchK: 5, LambdaMult: 0, LambdaSet: true, Strategy: StrategyMMR},
			expected: RetrievalOptions{K: 2, FetchK: 5, LambdaMult: 0, LambdaSet: true, Strategy: StrategyMMR},
		},
		{
			name:     "unset lambda takes default",
			in:       RetrievalOptions{K: 2, FetchK: 5, Strategy: StrategyMMR},
			expected: RetrievalOptions{K: 2, FetchK: 5, LambdaMult: 0.5, LambdaSet: true, Strategy: StrategyMMR},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.in.WithDefaults())
		})
	}
}

func TestSearchStrategy_IsValid(t *testing.T) {
	assert.True(t, StrategyMMR.IsValid())
	assert.True(t, StrategySimilarity.IsValid())
	assert.False(t, SearchStrategy("").IsValid())
	assert.False(t, SearchStrategy("hybrid").IsValid())
}

func TestMetric_IsValid(t *testing.T) {
	assert.True(t, MetricCosine.IsValid())
	assert.True(t, MetricDot.IsValid())
	assert.True(t, MetricEuclidean.IsValid())
	assert.False(t, Metric("manhattan").IsValid())
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "model_not_found", OutcomeModelNotFound.String())
	assert.Equal(t, "error", OutcomeError.String())
}
