package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// Retriever ranks stored chunks against a query.
type Retriever struct {
	embedder *Embedder
	store    driven.VectorStore
	defaults domain.RetrievalOptions
}

// NewRetriever creates a retriever. Zero options passed to Retrieve take
// the given defaults.
func NewRetriever(embedder *Embedder, store driven.VectorStore, defaults domain.RetrievalOptions) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		defaults: defaults.WithDefaults(),
	}
}

// Retrieve embeds the query and returns at most K matching chunks.
// An empty store yields an empty slice.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	return r.Search(ctx, vector, opts)
}

// Search ranks stored records against a query vector.
func (r *Retriever) Search(
	ctx context.Context, vector []float32, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	opts = r.resolve(opts)
	logger.Debug("Strategy: %s, k=%d, fetch_k=%d, lambda=%.2f", opts.Strategy, opts.K, opts.FetchK, opts.LambdaMult)

	if opts.Strategy == domain.StrategySimilarity {
		matches, err := r.store.Query(ctx, domain.VectorQuery{Vector: vector, TopK: opts.K})
		if err != nil {
			return nil, domain.NewStoreError("query", err)
		}
		logger.Info("Retrieved %d chunks by similarity", len(matches))
		return toResults(matches, opts.K), nil
	}

	return r.searchMMR(ctx, vector, opts)
}

// searchMMR fetches FetchK candidates with their vectors and re-ranks them.
func (r *Retriever) searchMMR(
	ctx context.Context, vector []float32, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	matches, err := r.store.Query(ctx, domain.VectorQuery{
		Vector:        vector,
		TopK:          opts.FetchK,
		IncludeValues: true,
	})
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}
	if len(matches) == 0 {
		logger.Info("Vector store returned no candidates")
		return []domain.RetrievalResult{}, nil
	}

	if err := r.fillMissingValues(ctx, matches); err != nil {
		return nil, err
	}

	candidates := make([][]float32, len(matches))
	for i, m := range matches {
		candidates[i] = m.Values
	}

	order := MaximalMarginalRelevance(vector, candidates, opts.K, opts.LambdaMult)
	selected := make([]domain.VectorMatch, 0, len(order))
	for _, i := range order {
		selected = append(selected, matches[i])
	}

	logger.Info("Retrieved %d chunks by MMR from %d candidates", len(selected), len(matches))
	return toResults(selected, opts.K), nil
}

// fillMissingValues re-embeds candidates the store returned without vectors.
func (r *Retriever) fillMissingValues(ctx context.Context, matches []domain.VectorMatch) error {
	var missing []int
	var texts []string
	for i, m := range matches {
		if len(m.Values) == 0 {
			missing = append(missing, i)
			texts = append(texts, m.Metadata[domain.MetadataText])
		}
	}
	if len(missing) == 0 {
		return nil
	}

	logger.Debug("Re-embedding %d candidates returned without vectors", len(missing))
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed candidates: %w", err)
	}
	for j, i := range missing {
		matches[i].Values = vectors[j]
	}
	return nil
}

// resolve fills unset options from the retriever defaults.
func (r *Retriever) resolve(opts domain.RetrievalOptions) domain.RetrievalOptions {
	if opts == (domain.RetrievalOptions{}) {
		return r.defaults
	}
	if opts.K <= 0 {
		opts.K = r.defaults.K
	}
	if opts.FetchK <= 0 {
		opts.FetchK = r.defaults.FetchK
	}
	if opts.Strategy == "" {
		opts.Strategy = r.defaults.Strategy
	}
	if opts.LambdaMult == 0 && !opts.LambdaSet {
		opts.LambdaMult = r.defaults.LambdaMult
		opts.LambdaSet = true
	}
	return opts.WithDefaults()
}

// toResults converts store matches to results, deduplicating ids and capping at k.
func toResults(matches []domain.VectorMatch, k int) []domain.RetrievalResult {
	results := make([]domain.RetrievalResult, 0, min(len(matches), k))
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		if len(results) == k {
			break
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true

		extra := make(map[string]string)
		for key, v := range m.Metadata {
			if key != domain.MetadataText && key != domain.MetadataSource {
				extra[key] = v
			}
		}

		results = append(results, domain.RetrievalResult{
			ID:       m.ID,
			Text:     m.Metadata[domain.MetadataText],
			Source:   m.Metadata[domain.MetadataSource],
			Score:    m.Score,
			Metadata: extra,
		})
	}
	return results
}
