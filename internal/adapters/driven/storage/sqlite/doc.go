// Package sqlite provides a local vector store on a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. The indexes table records each index's dimension and
// metric; the records table holds vectors as little-endian float32 blobs next
// to their text, source and JSON metadata.
//
// # Data Location
//
// By default, the database is stored at ~/.pdfqa/data/vectors.db
//
// # Queries
//
// Query is a brute-force scan scored in Go. This suits the few thousand
// chunks a local PDF collection produces; use a remote backend for more.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
