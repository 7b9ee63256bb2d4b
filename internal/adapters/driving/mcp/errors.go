// Package mcp exposes retrieval and question answering to AI assistants over
// the Model Context Protocol.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
