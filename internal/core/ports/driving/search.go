package driving

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// SearchService provides batch search capabilities to external actors.
type SearchService interface {
	// Search finds pages containing the query. Each call counts towards
	// the global search statistic.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
