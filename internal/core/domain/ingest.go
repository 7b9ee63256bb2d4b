package domain

// Ingestion defaults.
const (
	DefaultUpsertBatchSize = 64
	DefaultIngestDirectory = "data"
)

// IngestReport summarises an ingestion run.
type IngestReport struct {
	// DocumentsProcessed counts documents that were split.
	DocumentsProcessed int

	// ChunksAdded counts records committed to the store.
	ChunksAdded int

	// ChunksSkipped counts chunks dropped for blank or unembeddable text.
	ChunksSkipped int

	// Batches counts upsert calls made.
	Batches int

	// Failed lists files that could not be loaded.
	Failed []FileFailure
}

// FileFailure records a file the loader could not read.
type FileFailure struct {
	Path string
	Err  error
}
