// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docscan/internal/core/domain"
)

// ProgressReceived carries one progress event from the pipeline.
type ProgressReceived struct {
	Event domain.ProgressEvent
}

// StreamClosed signals the progress channel was closed.
type StreamClosed struct{}

// DocumentLoaded carries a fresh document snapshot.
type DocumentLoaded struct {
	Document *domain.Document
	Err      error
}

// PollDue asks the model to reload the document.
type PollDue struct{}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
