package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			response: &domain.SearchResponse{
				Results: []domain.SearchResult{{
					DocumentID: "doc-1",
					Title:      "Invoice March",
					Filename:   "invoice.pdf",
					TotalPages: 3,
					Pages: []domain.MatchedPage{
						{PageNumber: 2, Confidence: 91.5, Snippet: "...total due..."},
					},
				}},
				Total: 1,
			},
		}

		ports := validPorts()
		ports.Search = mockSearch
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := SearchInput{Query: "total", Page: 2, Limit: 5}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "total", mockSearch.lastQuery)
		assert.Equal(t, domain.SearchOptions{Page: 2, Limit: 5}, mockSearch.lastOpts)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "Invoice March", output.Results[0].Title)
		assert.Equal(t, 3, output.Results[0].TotalPages)
		assert.Equal(t, []PageMatchOutput{{PageNumber: 2, Confidence: 91.5, Snippet: "...total due..."}}, output.Results[0].Pages)
	})

	t.Run("no results", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Results)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		ports := validPorts()
		ports.Search = &mockSearchService{err: errors.New("search failed")}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document with pages", func(t *testing.T) {
		ports := validPorts()
		ports.Document = &mockDocumentService{document: &domain.Document{
			ID:               "doc-1",
			OriginalFilename: "scan.png",
			MimeType:         "image/png",
			Language:         "deu",
			Status:           domain.DocumentDone,
			Pages: []domain.Page{
				{PageNumber: 1, Status: domain.PageDone, Confidence: 80, Text: "Hallo"},
				{PageNumber: 2, Status: domain.PageFailed, Error: "engine crashed"},
			},
		}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "scan.png", output.Title)
		assert.Equal(t, "done", output.Status)
		assert.Equal(t, 80.0, output.AverageConfidence)
		require.Len(t, output.Pages, 2)
		assert.Equal(t, "Hallo", output.Pages[0].Text)
		assert.Equal(t, "engine crashed", output.Pages[1].Error)
	})

	t.Run("requires document id", func(t *testing.T) {
		server, err := NewServer(validPorts())
		require.NoError(t, err)

		_, _, err = server.handleGetDocument(ctx, nil, DocumentInput{})
		assert.Error(t, err)
	})

	t.Run("wraps lookup errors", func(t *testing.T) {
		ports := validPorts()
		ports.Document = &mockDocumentService{err: domain.ErrNotFound}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleReprocess(t *testing.T) {
	ctx := context.Background()
	docs := &mockDocumentService{}
	ports := validPorts()
	ports.Document = docs
	server, err := NewServer(ports)
	require.NoError(t, err)

	_, output, err := server.handleReprocess(ctx, nil, ReprocessInput{DocumentID: "doc-9", Language: "fra"})

	require.NoError(t, err)
	assert.Equal(t, "doc-9", docs.reprocessed)
	assert.Equal(t, "fra", docs.reprocessLng)
	assert.Equal(t, ReprocessOutput{DocumentID: "doc-9", Status: "queued", Language: "fra"}, output)

	_, _, err = server.handleReprocess(ctx, nil, ReprocessInput{})
	assert.Error(t, err)
}

func TestServer_handleStats(t *testing.T) {
	ports := validPorts()
	ports.Stats = &mockStatsService{stats: domain.Stats{Documents: 2, Pages: 7, Searches: 11}}
	server, err := NewServer(ports)
	require.NoError(t, err)

	_, output, err := server.handleStats(context.Background(), nil, StatsInput{})

	require.NoError(t, err)
	assert.Equal(t, StatsOutput{Documents: 2, Pages: 7, Searches: 11}, output)
}
