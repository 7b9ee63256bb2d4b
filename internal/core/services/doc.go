// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The RAG pipeline is assembled here: the Embedder wraps a provider,
// the IngestionService chunks, embeds and upserts documents, the
// Retriever ranks stored chunks by similarity or MMR, and the Composer
// turns retrieved context into a grounded answer.
//
// Services are pure Go with no CGO or external dependencies.
package services
