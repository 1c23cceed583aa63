package httpapi

import (
	"errors"

	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

// Sentinel errors for HTTP server configuration.
var (
	// ErrMissingDocumentService is returned when the document service is nil.
	ErrMissingDocumentService = errors.New("httpapi: document service is required")

	// ErrMissingSearchService is returned when the search service is nil.
	ErrMissingSearchService = errors.New("httpapi: search service is required")

	// ErrMissingStatsService is returned when the stats service is nil.
	ErrMissingStatsService = errors.New("httpapi: stats service is required")

	// ErrMissingProgressService is returned when the progress service is nil.
	ErrMissingProgressService = errors.New("httpapi: progress service is required")

	// ErrMissingLiveSearchService is returned when the live search service is nil.
	ErrMissingLiveSearchService = errors.New("httpapi: live search service is required")
)

// Ports holds the driving ports the HTTP server depends on.
type Ports struct {
	Documents  driving.DocumentService
	Search     driving.SearchService
	Stats      driving.StatsService
	Progress   driving.ProgressService
	LiveSearch driving.LiveSearchService
}

// Validate checks that every port is set.
func (p *Ports) Validate() error {
	switch {
	case p.Documents == nil:
		return ErrMissingDocumentService
	case p.Search == nil:
		return ErrMissingSearchService
	case p.Stats == nil:
		return ErrMissingStatsService
	case p.Progress == nil:
		return ErrMissingProgressService
	case p.LiveSearch == nil:
		return ErrMissingLiveSearchService
	}
	return nil
}
