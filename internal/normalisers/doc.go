// Package normalisers turns raw files into document text.
//
// Each sub-package handles one family of MIME types. The Registry picks the
// highest-priority normaliser for a document and maps file extensions to
// MIME types for the loader.
package normalisers
