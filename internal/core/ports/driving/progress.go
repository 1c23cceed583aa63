package driving

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// ProgressService fans progress events out to at most one observer per
// document.
type ProgressService interface {
	// Subscribe makes sink the observer for the document, replacing any
	// previous one. The returned func removes this registration only.
	Subscribe(documentID string, sink driven.EventSink) (unsubscribe func())

	// Unsubscribe removes the current observer. Safe to call when none.
	Unsubscribe(documentID string)

	// Publish delivers the event if an observer is registered.
	Publish(ctx context.Context, documentID string, event domain.ProgressEvent)
}
