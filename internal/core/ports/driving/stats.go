package driving

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// StatsService computes and broadcasts global statistics.
type StatsService interface {
	// Stats computes the current counters.
	Stats(ctx context.Context) (domain.Stats, error)

	// IncrementSearches bumps the search counter and broadcasts.
	IncrementSearches(ctx context.Context) (domain.Stats, error)

	// Subscribe registers a sink for broadcasts.
	Subscribe(sink driven.StatsSink) (unsubscribe func())

	// Refresh recomputes and broadcasts the counters.
	Refresh(ctx context.Context) error
}
