package tui

import "errors"

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("tui: document service is required")

// ErrMissingProgressService is returned when the progress service is not provided.
var ErrMissingProgressService = errors.New("tui: progress service is required")

// ErrMissingDocumentID is returned when no document is given to watch.
var ErrMissingDocumentID = errors.New("tui: document id is required")
