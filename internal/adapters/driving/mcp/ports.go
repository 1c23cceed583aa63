package mcp

import (
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search runs batch searches over recognised pages.
	Search driving.SearchService

	// Document reads and reprocesses documents.
	Document driving.DocumentService

	// Stats reports global counters.
	Stats driving.StatsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	// Stats is optional; the stats tool is only registered when present.
	return nil
}
