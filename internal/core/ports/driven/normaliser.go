package driven

import (
	"context"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
)

// Normaliser transforms a raw file into document text.
// Each normaliser handles specific MIME types (e.g., PDF, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise transforms a raw document into a document with Content populated.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled separately by the Chunker.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}

// DocumentLoader reads documents from a directory of files.
type DocumentLoader interface {
	// Load reads every supported file in dir. Files that fail to load are
	// returned as failures and do not stop the others. An unreadable
	// directory is returned as an error.
	Load(ctx context.Context, dir string) ([]domain.Document, []domain.FileFailure, error)

	// LoadFile reads a single file.
	LoadFile(ctx context.Context, path string) (*domain.Document, error)

	// Supports reports whether the file at path has a supported type.
	Supports(path string) bool
}

// DirectoryWatcher reports file changes in a directory until ctx is cancelled.
type DirectoryWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan domain.FileChange, error)
}
