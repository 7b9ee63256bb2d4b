// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorStore: Record persistence and nearest-neighbour search
//   - EmbeddingService: Turns text into vectors
//   - Chunker: Splits document text into overlapping chunks
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, only retrieval is available.
//   - DocumentLoader: Reads documents from a directory. Without it, only
//     in-memory documents can be ingested.
//   - PromptStore: Customisable prompt templates. Without it, built-in
//     templates are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, loader, or normaliser package
package driven
