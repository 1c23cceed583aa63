package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"text to find in recognised pages"`
	Page  int    `json:"page,omitempty" jsonschema:"1-based result page (default 1)"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 10, max 50)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single matching document.
type SearchResultOutput struct {
	DocumentID string            `json:"document_id"`
	Title      string            `json:"title"`
	Filename   string            `json:"filename,omitempty"`
	TotalPages int               `json:"total_pages"`
	Pages      []PageMatchOutput `json:"pages"`
}

// PageMatchOutput is one matching page of a document.
type PageMatchOutput struct {
	PageNumber int     `json:"page_number"`
	Confidence float64 `json:"confidence"`
	Snippet    string  `json:"snippet"`
}

// DocumentInput identifies a document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document ID"`
}

// DocumentOutput describes a document and its recognised pages.
type DocumentOutput struct {
	DocumentID        string       `json:"document_id"`
	Title             string       `json:"title"`
	Filename          string       `json:"filename,omitempty"`
	MimeType          string       `json:"mime_type"`
	Language          string       `json:"language"`
	Status            string       `json:"status"`
	AverageConfidence float64      `json:"average_confidence"`
	Pages             []PageOutput `json:"pages"`
}

// PageOutput is a single page of a document.
type PageOutput struct {
	PageNumber int     `json:"page_number"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput reports global counters.
type StatsOutput struct {
	Documents int `json:"documents"`
	Pages     int `json:"pages"`
	Searches  int `json:"searches"`
}

// ReprocessInput selects a document and an optional OCR language.
type ReprocessInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document ID"`
	Language   string `json:"language,omitempty" jsonschema:"tesseract language code such as eng or deu+eng; keeps the current language when empty"`
}

// ReprocessOutput confirms a queued reprocess.
type ReprocessOutput struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Language   string `json:"language"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the recognised text of all documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get a document with its processing status and page text",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reprocess",
		Description: "Run OCR again for a document, optionally with another language",
	}, s.handleReprocess)

	if s.ports.Stats != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "stats",
			Description: "Count documents, pages and searches",
		}, s.handleStats)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{Page: input.Page, Limit: input.Limit}
	resp, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(resp.Results)),
		Count:   len(resp.Results),
	}

	for i, r := range resp.Results {
		pages := make([]PageMatchOutput, len(r.Pages))
		for j, p := range r.Pages {
			pages[j] = PageMatchOutput{
				PageNumber: p.PageNumber,
				Confidence: p.Confidence,
				Snippet:    p.Snippet,
			}
		}
		output.Results[i] = SearchResultOutput{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Filename:   r.Filename,
			TotalPages: r.TotalPages,
			Pages:      pages,
		}
	}

	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if input.DocumentID == "" {
		return nil, DocumentOutput{}, errors.New("document_id is required")
	}

	doc, err := s.ports.Document.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, fmt.Errorf("getting document: %w", err)
	}

	_, _, avg := doc.PageTotals()
	output := DocumentOutput{
		DocumentID:        doc.ID,
		Title:             doc.DisplayTitle(),
		Filename:          doc.OriginalFilename,
		MimeType:          doc.MimeType,
		Language:          doc.Language,
		Status:            string(doc.Status),
		AverageConfidence: avg,
		Pages:             make([]PageOutput, len(doc.Pages)),
	}
	for i, p := range doc.Pages {
		output.Pages[i] = PageOutput{
			PageNumber: p.PageNumber,
			Status:     string(p.Status),
			Confidence: p.Confidence,
			Text:       p.Text,
			Error:      p.Error,
		}
	}

	return nil, output, nil
}

// handleReprocess handles the reprocess tool invocation.
func (s *Server) handleReprocess(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReprocessInput,
) (*mcp.CallToolResult, ReprocessOutput, error) {
	if input.DocumentID == "" {
		return nil, ReprocessOutput{}, errors.New("document_id is required")
	}

	doc, err := s.ports.Document.Reprocess(ctx, input.DocumentID, input.Language)
	if err != nil {
		return nil, ReprocessOutput{}, fmt.Errorf("reprocessing document: %w", err)
	}

	return nil, ReprocessOutput{
		DocumentID: doc.ID,
		Status:     string(doc.Status),
		Language:   doc.Language,
	}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Stats.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput(stats), nil
}
