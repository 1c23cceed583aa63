package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// UploadRequest describes a new document.
type UploadRequest struct {
	// Filename is the original name of the file.
	Filename string

	// Title overrides the display title. Defaults to Filename.
	Title string

	// Language is the OCR language. Defaults to the configured language.
	Language string

	// MimeType is the declared content type. Detected when empty.
	MimeType string

	// Content is the file body.
	Content io.Reader

	// SkipDuplicate returns the existing document instead of creating a
	// new one when the content hash is already stored.
	SkipDuplicate bool
}

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Upload stores the file, creates a queued document and, unless
	// deferred, dispatches processing.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents, most recently updated first.
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)

	// GetContent returns the text of all done pages joined in page order.
	GetContent(ctx context.Context, documentID string) (string, error)

	// SourcePath returns where the stored upload for a document lives.
	SourcePath(doc *domain.Document) string

	// Reprocess resets the pages of a document, optionally switches its
	// language, and dispatches a new run.
	Reprocess(ctx context.Context, documentID, language string) (*domain.Document, error)
}
