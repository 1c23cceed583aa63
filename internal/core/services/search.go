package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService answers batch search queries over recognised pages.
type SearchService struct {
	docStore driven.DocumentStore
	stats    driving.StatsService
}

// NewSearchService creates a new search service.
// The stats parameter is optional (can be nil); without it searches are
// not counted.
func NewSearchService(docStore driven.DocumentStore, stats driving.StatsService) *SearchService {
	return &SearchService{
		docStore: docStore,
		stats:    stats,
	}
}

// Search returns documents with at least one page containing the query.
// Documents matching on title alone are omitted.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	opts = opts.Normalise()
	resp := &domain.SearchResponse{
		Results: []domain.SearchResult{},
		Page:    opts.Page,
		Limit:   opts.Limit,
	}

	q := domain.NormaliseQuery(query)
	if q == "" {
		logger.Debug("Empty query, returning no results")
		return resp, nil
	}

	if s.stats != nil {
		BestEffort("count search", func() error {
			_, err := s.stats.IncrementSearches(ctx)
			return err
		})
	}

	docs, err := s.docStore.Search(ctx, q, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	logger.Debug("Store returned %d candidate documents", len(docs))

	for i := range docs {
		doc := &docs[i]
		var pages []domain.MatchedPage
		for _, p := range doc.Pages {
			if p.Text == "" {
				continue
			}
			snippet, idx := domain.BuildSnippet(p.Text, q)
			if idx < 0 {
				continue
			}
			pages = append(pages, domain.MatchedPage{
				PageNumber: p.PageNumber,
				Confidence: p.Confidence,
				Snippet:    snippet,
				MatchIndex: idx,
				Thumbnail:  domain.ThumbnailURL(doc.ContentHash, p.PageNumber),
			})
		}
		if len(pages) == 0 {
			continue
		}
		resp.Results = append(resp.Results, domain.SearchResult{
			DocumentID: doc.ID,
			Title:      doc.DisplayTitle(),
			Filename:   doc.OriginalFilename,
			TotalPages: len(doc.Pages),
			Pages:      pages,
		})
	}

	resp.Total = len(resp.Results)
	logger.Debug("Returning %d results", resp.Total)
	return resp, nil
}
