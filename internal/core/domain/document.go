package domain

import "time"

// Document is loaded text plus the identifier of the file it came from.
// Documents are immutable once loaded and discarded after ingestion.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source identifies where the text came from, usually the file name.
	Source string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// LoadedAt is when the document was read.
	LoadedAt time.Time
}

// Chunk is a contiguous substring of a Document's content.
// Neighbouring chunks share up to the configured overlap.
type Chunk struct {
	// ID is the content-addressed record identifier, set during ingestion.
	ID string

	// Source is inherited from the parent Document.
	Source string

	// Ordinal is the position of the chunk within its document.
	Ordinal int

	// Start is the byte offset of the chunk within the document content.
	Start int

	// Content is the chunk text.
	Content string

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// End returns the byte offset just past the chunk within the document content.
func (c Chunk) End() int {
	return c.Start + len(c.Content)
}
