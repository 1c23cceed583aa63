// Package mcp provides an MCP (Model Context Protocol) server adapter for docscan.
// It lets AI assistants search recognised text, read documents and trigger
// reprocessing.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingDocumentService is returned when the document service is not provided.
	ErrMissingDocumentService = errors.New("mcp: document service is required")
)
