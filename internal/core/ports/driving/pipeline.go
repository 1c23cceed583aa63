package driving

import "context"

// Pipeline runs OCR over one stored document.
type Pipeline interface {
	// ProcessDocument drives the document through rasterisation and
	// per-page recognition. It never returns an error; the outcome is
	// recorded on the document and published as progress events.
	ProcessDocument(ctx context.Context, documentID, sourcePath string)
}

// Dispatcher starts pipeline runs in the background.
type Dispatcher interface {
	// Dispatch schedules a run and returns immediately. The run keeps
	// the values of ctx but not its cancellation.
	Dispatch(ctx context.Context, documentID, sourcePath string)

	// Active reports whether a run for the document is queued or running.
	Active(documentID string) bool

	// Wait blocks until every dispatched run has finished.
	Wait()
}
