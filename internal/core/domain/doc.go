// Package domain defines the core business entities for pdfqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Loaded text plus the source it came from
//   - Chunk: A bounded, overlapping substring of a Document
//   - VectorRecord: An (id, vector, metadata) triple held by a vector store
//   - RetrievalResult: A ranked chunk returned for a query
//   - Answer: Generated text with its source attributions
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
