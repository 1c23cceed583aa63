package mcp

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response  *domain.SearchResponse
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
	}
	return m.response, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents    []domain.Document
	document     *domain.Document
	content      string
	err          error
	reprocessed  string
	reprocessLng string
}

func (m *mockDocumentService) Upload(_ context.Context, _ driving.UploadRequest) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, _, _ int) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) SourcePath(doc *domain.Document) string {
	return "/uploads/" + doc.ContentHash + doc.Extension()
}

func (m *mockDocumentService) Reprocess(_ context.Context, id, language string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.reprocessed = id
	m.reprocessLng = language
	lang := language
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	return &domain.Document{ID: id, Status: domain.DocumentQueued, Language: lang}, nil
}

// mockStatsService is a mock implementation of driving.StatsService.
type mockStatsService struct {
	stats domain.Stats
	err   error
}

func (m *mockStatsService) Stats(_ context.Context) (domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockStatsService) IncrementSearches(_ context.Context) (domain.Stats, error) {
	m.stats.Searches++
	return m.stats, m.err
}

func (m *mockStatsService) Subscribe(_ driven.StatsSink) func() {
	return func() {}
}

func (m *mockStatsService) Refresh(_ context.Context) error {
	return m.err
}

func validPorts() *Ports {
	return &Ports{
		Search:   &mockSearchService{},
		Document: &mockDocumentService{},
	}
}
