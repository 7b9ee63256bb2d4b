package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
	"github.com/custodia-labs/pdfqa/internal/logger"
)

// OverflowPolicy decides what happens to text longer than the input limit.
type OverflowPolicy int

// Overflow policies.
const (
	// TruncateOverflow cuts the text to the limit and logs a warning.
	TruncateOverflow OverflowPolicy = iota

	// RejectOverflow fails the input with an EmbeddingError.
	RejectOverflow
)

// Embedder defaults.
const (
	DefaultEmbedBatchSize     = 32
	DefaultEmbedMaxInputChars = 8000
)

// dimensionProbe is embedded once when the provider cannot advertise its dimension.
const dimensionProbe = "dimension probe"

// EmbedderConfig configures an Embedder. Zero fields take defaults.
type EmbedderConfig struct {
	BatchSize     int
	MaxInputChars int
	Overflow      OverflowPolicy
}

// Embedder turns text into fixed-length vectors through an embedding provider.
type Embedder struct {
	service driven.EmbeddingService
	cfg     EmbedderConfig

	mu  sync.Mutex
	dim int
}

// NewEmbedder creates an embedder over the given provider.
func NewEmbedder(service driven.EmbeddingService, cfg EmbedderConfig) *Embedder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbedBatchSize
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultEmbedMaxInputChars
	}
	return &Embedder{service: service, cfg: cfg}
}

// ModelName returns the provider model name.
func (e *Embedder) ModelName() string {
	return e.service.ModelName()
}

// Dimensions returns the vector length produced by the provider.
// The provider's advertised value is used when known, otherwise a single
// probe embedding is made. The result is remembered.
func (e *Embedder) Dimensions(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dim > 0 {
		return e.dim, nil
	}
	if d := e.service.Dimensions(); d > 0 {
		e.dim = d
		return d, nil
	}

	logger.Debug("Probing embedding dimension for model %s", e.service.ModelName())
	vec, err := e.service.Embed(ctx, dimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return 0, &domain.EmbeddingError{Index: -1, Reason: "provider returned an empty vector"}
	}
	e.dim = len(vec)
	return e.dim, nil
}

// Prepare applies the input policy to a single text.
// Blank text is an EmbeddingError. Text over the limit is truncated or
// rejected according to the overflow policy.
func (e *Embedder) Prepare(index int, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &domain.EmbeddingError{Index: index, Reason: "text is empty"}
	}

	n := utf8.RuneCountInString(text)
	if n <= e.cfg.MaxInputChars {
		return text, nil
	}
	if e.cfg.Overflow == RejectOverflow {
		return "", &domain.EmbeddingError{
			Index:  index,
			Reason: fmt.Sprintf("text has %d characters, limit is %d", n, e.cfg.MaxInputChars),
		}
	}

	logger.Warn("Truncating embedding input %d from %d to %d characters", index, n, e.cfg.MaxInputChars)
	return string([]rune(text)[:e.cfg.MaxInputChars]), nil
}

// Embed returns one vector per text, in input order.
// Texts are sent to the provider in batches.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	prepared := make([]string, len(texts))
	for i, text := range texts {
		p, err := e.Prepare(i, text)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(prepared); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(prepared))

		batch, err := e.service.EmbedBatch(ctx, prepared[start:end])
		if err != nil {
			return nil, wrapEmbedError(start, err)
		}
		if len(batch) != end-start {
			return nil, &domain.EmbeddingError{
				Index:  -1,
				Reason: fmt.Sprintf("provider returned %d vectors for %d inputs", len(batch), end-start),
			}
		}
		vectors = append(vectors, batch...)
	}

	if err := e.checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// checkDimensions verifies every vector has the advertised length.
// The first vector fixes the dimension when none is known yet.
func (e *Embedder) checkDimensions(vectors [][]float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dim == 0 {
		e.dim = e.service.Dimensions()
	}
	if e.dim == 0 && len(vectors) > 0 {
		e.dim = len(vectors[0])
	}

	for i, v := range vectors {
		if len(v) != e.dim {
			return &domain.EmbeddingError{
				Index:  i,
				Reason: fmt.Sprintf("vector has %d dimensions, expected %d", len(v), e.dim),
				Err:    domain.ErrDimensionMismatch,
			}
		}
	}
	return nil
}

// wrapEmbedError shifts a provider's per-input index by the batch offset.
func wrapEmbedError(offset int, err error) error {
	var embErr *domain.EmbeddingError
	if errors.As(err, &embErr) && embErr.Index >= 0 {
		shifted := *embErr
		shifted.Index += offset
		return &shifted
	}
	return fmt.Errorf("embed batch: %w", err)
}
