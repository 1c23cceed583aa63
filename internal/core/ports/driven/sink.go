package driven

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// EventSink delivers progress events to one observer.
// Send returns an error once the observer's transport is gone.
type EventSink interface {
	Send(ctx context.Context, event domain.ProgressEvent) error
}

// MatchSink delivers live search matches to one subscriber.
type MatchSink interface {
	Send(ctx context.Context, match domain.LiveMatch) error
}

// StatsSink delivers global statistics to one subscriber.
type StatsSink interface {
	Send(ctx context.Context, stats domain.Stats) error
}
