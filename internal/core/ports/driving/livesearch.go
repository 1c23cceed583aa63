package driving

import (
	"context"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// SubscriptionHandle identifies a live search subscription.
type SubscriptionHandle string

// LiveSearchService pushes matches to standing queries as pages complete.
type LiveSearchService interface {
	// Subscribe registers a query. Empty queries are accepted but never match.
	Subscribe(sink driven.MatchSink, rawQuery string) SubscriptionHandle

	// Unsubscribe removes a subscription. Safe to call twice.
	Unsubscribe(handle SubscriptionHandle)

	// NotifyPageProcessed checks a completed page against every query.
	NotifyPageProcessed(ctx context.Context, doc *domain.Document, page domain.Page)
}
