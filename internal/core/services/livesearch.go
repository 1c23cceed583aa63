package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure LiveSearchNotifier implements the interface.
var _ driving.LiveSearchService = (*LiveSearchNotifier)(nil)

// LiveSearchNotifier holds standing queries and pushes a match to each one
// that a newly completed page satisfies.
type LiveSearchNotifier struct {
	mu   sync.RWMutex
	subs map[driving.SubscriptionHandle]liveSubscription
	log  logger.Logger
}

type liveSubscription struct {
	query string
	sink  driven.MatchSink
}

// NewLiveSearchNotifier creates an empty notifier.
func NewLiveSearchNotifier() *LiveSearchNotifier {
	return &LiveSearchNotifier{
		subs: make(map[driving.SubscriptionHandle]liveSubscription),
		log:  logger.With("livesearch"),
	}
}

// Subscribe registers a query. The query is normalised once, here.
func (n *LiveSearchNotifier) Subscribe(sink driven.MatchSink, rawQuery string) driving.SubscriptionHandle {
	h := driving.SubscriptionHandle(uuid.NewString())

	n.mu.Lock()
	n.subs[h] = liveSubscription{query: domain.NormaliseQuery(rawQuery), sink: sink}
	n.mu.Unlock()

	return h
}

// Unsubscribe removes a subscription.
func (n *LiveSearchNotifier) Unsubscribe(handle driving.SubscriptionHandle) {
	n.mu.Lock()
	delete(n.subs, handle)
	n.mu.Unlock()
}

// Subscribers returns the number of active subscriptions.
func (n *LiveSearchNotifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// NotifyPageProcessed sends a match to every subscription whose query
// occurs in the page text or the document title. Failed pages are ignored.
func (n *LiveSearchNotifier) NotifyPageProcessed(ctx context.Context, doc *domain.Document, page domain.Page) {
	if doc == nil || page.Status == domain.PageFailed {
		return
	}

	n.mu.RLock()
	subs := make([]liveSubscription, 0, len(n.subs))
	for _, s := range n.subs {
		subs = append(subs, s)
	}
	n.mu.RUnlock()

	for _, s := range subs {
		if s.query == "" {
			continue
		}
		if !domain.ContainsFold(page.Text, s.query) && !domain.ContainsFold(doc.Title, s.query) {
			continue
		}

		snippet, idx := domain.BuildSnippet(page.Text, s.query)
		match := domain.LiveMatch{
			DocumentID: doc.ID,
			Title:      doc.DisplayTitle(),
			Filename:   doc.OriginalFilename,
			Page: domain.MatchedPage{
				PageNumber: page.PageNumber,
				Confidence: page.Confidence,
				Snippet:    snippet,
				MatchIndex: idx,
				Thumbnail:  domain.ThumbnailURL(doc.ContentHash, page.PageNumber),
			},
		}

		sink := s.sink
		BestEffort("live search delivery", func() error {
			return sink.Send(ctx, match)
		})
	}
}
