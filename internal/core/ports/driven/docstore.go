package driven

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// DocumentStore persists documents together with their pages.
// Backed by SQLite for durable storage.
type DocumentStore interface {
	// Create stores a new document and returns its ID.
	// An ID is assigned when the document has none.
	Create(ctx context.Context, doc *domain.Document) (string, error)

	// Get retrieves a document by ID.
	// Returns domain.ErrNotFound if the document does not exist.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Save replaces the stored document and all of its pages.
	Save(ctx context.Context, doc *domain.Document) error

	// Count returns the number of documents.
	Count(ctx context.Context) (int, error)

	// PageCount returns the number of pages across all documents.
	PageCount(ctx context.Context) (int, error)

	// List returns documents ordered by most recently updated.
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)

	// Search returns documents whose title or page text contains the
	// normalised query, most recently updated first.
	Search(ctx context.Context, query string, limit, offset int) ([]domain.Document, error)

	// FindByHash returns the document with the given content hash.
	// Returns domain.ErrNotFound if there is none.
	FindByHash(ctx context.Context, hash string) (*domain.Document, error)

	// ListByStatus returns all documents in the given status.
	ListByStatus(ctx context.Context, status domain.DocumentStatus) ([]domain.Document, error)
}

// StatsStore persists counters that cannot be derived from documents.
type StatsStore interface {
	// IncrementSearches bumps the search counter and returns the new value.
	IncrementSearches(ctx context.Context) (int, error)

	// Searches returns the current search counter.
	Searches(ctx context.Context) (int, error)
}
