package mcp

import (
	"github.com/custodia-labs/pdfqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server uses.
type Ports struct {
	// Retrieval finds chunks for a query. Required.
	Retrieval driving.RetrievalService

	// Answer composes grounded answers. Nil when no generation backend is
	// configured; the ask tool then reports the LLM as unavailable.
	Answer driving.AnswerService

	// Index describes the vector index for the stats resource.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
