package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docscan/internal/core/domain"
)

type failingSearchStore struct {
	*memory.DocumentStore
}

func (failingSearchStore) Search(context.Context, string, int, int) ([]domain.Document, error) {
	return nil, errors.New("database is locked")
}

func donePage(n int, text string, confidence float64) domain.Page {
	return domain.Page{PageNumber: n, Text: text, Confidence: confidence, Status: domain.PageDone}
}

func setupSearch(t *testing.T) (*SearchService, *memory.StatsStore) {
	t.Helper()
	store := memory.NewDocumentStore()
	ctx := context.Background()

	docs := []*domain.Document{
		{
			Title:            "Electricity bill",
			OriginalFilename: "bill.pdf",
			ContentHash:      "h1",
			Pages: []domain.Page{
				donePage(1, "Customer number 4711", 91),
				donePage(2, "Amount due: 120 EUR", 85),
				donePage(3, "Payment amount confirmed", 70),
			},
		},
		{
			Title:       "Amount overview",
			ContentHash: "h2",
			Pages:       []domain.Page{donePage(1, "nothing to see", 60)},
		},
		{
			Title:       "Contract",
			ContentHash: "h3",
			Pages: []domain.Page{
				{PageNumber: 1, Status: domain.PageFailed, Error: "boom"},
				donePage(2, "The AMOUNT is fixed", 77),
			},
		},
	}
	for _, d := range docs {
		_, err := store.Create(ctx, d)
		require.NoError(t, err)
	}

	counters := memory.NewStatsStore()
	stats := NewStatsService(store, counters, 0, 1)
	return NewSearchService(store, stats), counters
}

func TestSearchService_Search(t *testing.T) {
	svc, counters := setupSearch(t)

	resp, err := svc.Search(context.Background(), "  Amount ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.Limit)
	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)

	// Most recently written first; the title-only match is omitted.
	contract := resp.Results[0]
	assert.Equal(t, "Contract", contract.Title)
	assert.Equal(t, 2, contract.TotalPages)
	require.Len(t, contract.Pages, 1)
	assert.Equal(t, 2, contract.Pages[0].PageNumber)
	assert.Equal(t, 4, contract.Pages[0].MatchIndex)

	bill := resp.Results[1]
	assert.Equal(t, "Electricity bill", bill.Title)
	assert.Equal(t, "bill.pdf", bill.Filename)
	require.Len(t, bill.Pages, 2)
	assert.Equal(t, domain.MatchedPage{
		PageNumber: 2,
		Confidence: 85,
		Snippet:    "Amount due: 120 EUR",
		MatchIndex: 0,
		Thumbnail:  "/uploads/h1-page-2.png",
	}, bill.Pages[0])
	assert.Equal(t, 3, bill.Pages[1].PageNumber)
	assert.Equal(t, 8, bill.Pages[1].MatchIndex)

	searches, err := counters.Searches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, searches)
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc, counters := setupSearch(t)

	resp, err := svc.Search(context.Background(), "   ", domain.SearchOptions{Page: 2, Limit: 5})

	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 5, resp.Limit)

	searches, _ := counters.Searches(context.Background())
	assert.Zero(t, searches)
}

func TestSearchService_NoMatches(t *testing.T) {
	svc, _ := setupSearch(t)

	resp, err := svc.Search(context.Background(), "zebra", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
}

func TestSearchService_Pagination(t *testing.T) {
	svc, _ := setupSearch(t)

	resp, err := svc.Search(context.Background(), "amount", domain.SearchOptions{Page: 3, Limit: 1})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Electricity bill", resp.Results[0].Title)

	resp, err = svc.Search(context.Background(), "amount", domain.SearchOptions{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxSearchLimit, resp.Limit)
}

func TestSearchService_LongPageSnippet(t *testing.T) {
	store := memory.NewDocumentStore()
	text := strings.Repeat("a", 100) + "needle" + strings.Repeat("b", 300)
	_, err := store.Create(context.Background(), &domain.Document{Title: "long", Pages: []domain.Page{donePage(1, text, 50)}})
	require.NoError(t, err)

	resp, err := NewSearchService(store, nil).Search(context.Background(), "needle", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	snippet := resp.Results[0].Pages[0].Snippet
	assert.True(t, strings.HasPrefix(snippet, "..."))
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Equal(t, 3+60+6+200+3, len([]rune(snippet)))
	assert.Equal(t, 100, resp.Results[0].Pages[0].MatchIndex)
}

func TestSearchService_StoreError(t *testing.T) {
	svc := NewSearchService(failingSearchStore{memory.NewDocumentStore()}, nil)

	_, err := svc.Search(context.Background(), "x", domain.SearchOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}
