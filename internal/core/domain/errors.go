package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown provider, backend or file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the generation backend is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMissingEnvironment indicates a required environment variable is unset.
	ErrMissingEnvironment = errors.New("missing required environment variable")

	// Generation Errors.

	// ErrModelNotFound indicates the backend does not serve the requested model.
	// The answer composer moves on to the next candidate.
	ErrModelNotFound = errors.New("model not found")

	// ErrGenerationTimeout indicates the backend did not answer in time.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrGenerationConnection indicates the backend could not be reached.
	ErrGenerationConnection = errors.New("generation backend unreachable")

	// ErrModelsExhausted indicates every candidate model reported model not found.
	ErrModelsExhausted = errors.New("all candidate models exhausted")

	// ErrGenerationRejected indicates the backend refused the request.
	ErrGenerationRejected = errors.New("generation request rejected")

	// ErrNoRelevantDocuments indicates retrieval found nothing to answer from.
	ErrNoRelevantDocuments = errors.New("no relevant documents found")
)

// ConfigurationError reports invalid parameters or missing credentials.
// It is fatal and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

// NewConfigurationError creates a ConfigurationError for a field.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports text that could not be embedded.
type EmbeddingError struct {
	// Index is the position of the offending input, or -1.
	Index  int
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	msg := "embedding error"
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (input %d)", e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// StoreError reports a vector store failure. It is distinct from an empty result.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a StoreError unless it already is one.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// GenerationErrorKind names the sub-case of a generation failure.
type GenerationErrorKind int

// Generation failure sub-cases.
const (
	GenerationRejected GenerationErrorKind = iota
	GenerationTimeout
	GenerationConnection
	GenerationModelsExhausted
)

// String returns the string representation.
func (k GenerationErrorKind) String() string {
	switch k {
	case GenerationTimeout:
		return "timeout"
	case GenerationConnection:
		return "connection"
	case GenerationModelsExhausted:
		return "models exhausted"
	default:
		return "rejected"
	}
}

// sentinel returns the sentinel error matching the kind.
func (k GenerationErrorKind) sentinel() error {
	switch k {
	case GenerationTimeout:
		return ErrGenerationTimeout
	case GenerationConnection:
		return ErrGenerationConnection
	case GenerationModelsExhausted:
		return ErrModelsExhausted
	default:
		return ErrGenerationRejected
	}
}

// GenerationError reports why an answer could not be generated.
// errors.Is matches both the kind sentinel and the wrapped cause.
type GenerationError struct {
	Kind  GenerationErrorKind
	Model string
	Tried []string
	Err   error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case GenerationModelsExhausted:
		return fmt.Sprintf("generation failed: none of the candidate models are available (tried %s)",
			strings.Join(e.Tried, ", "))
	case GenerationTimeout:
		return fmt.Sprintf("generation failed: model %s timed out: %v", e.Model, e.Err)
	case GenerationConnection:
		return fmt.Sprintf("generation failed: cannot reach backend for model %s: %v", e.Model, e.Err)
	default:
		return fmt.Sprintf("generation failed: model %s: %v", e.Model, e.Err)
	}
}

// Unwrap returns the kind sentinel and the underlying error.
func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// ClassifyGenerationError maps a backend error onto a generation error kind.
func ClassifyGenerationError(err error) GenerationErrorKind {
	switch {
	case errors.Is(err, ErrGenerationTimeout):
		return GenerationTimeout
	case errors.Is(err, ErrGenerationConnection):
		return GenerationConnection
	case errors.Is(err, ErrModelsExhausted):
		return GenerationModelsExhausted
	default:
		return GenerationRejected
	}
}

// IngestionError reports a failed upsert batch with the records committed before it.
type IngestionError struct {
	Committed int
	Err       error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed after %d records committed: %v", e.Committed, e.Err)
}

// Unwrap returns the underlying error.
func (e *IngestionError) Unwrap() error {
	return e.Err
}
