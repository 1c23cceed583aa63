package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure ProgressBroadcaster implements the interface.
var _ driving.ProgressService = (*ProgressBroadcaster)(nil)

// ProgressBroadcaster delivers progress events to the most recent observer
// of each document. Events published with no observer are dropped.
type ProgressBroadcaster struct {
	mu        sync.Mutex
	observers map[string]*progressObserver
	log       logger.Logger
}

// progressObserver gives each registration an identity so a replaced
// observer cannot remove its successor.
type progressObserver struct {
	sink driven.EventSink
}

// NewProgressBroadcaster creates an empty broadcaster.
func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{
		observers: make(map[string]*progressObserver),
		log:       logger.With("progress"),
	}
}

// Subscribe registers sink as the observer for the document.
func (b *ProgressBroadcaster) Subscribe(documentID string, sink driven.EventSink) func() {
	o := &progressObserver{sink: sink}

	b.mu.Lock()
	b.observers[documentID] = o
	b.mu.Unlock()

	return func() { b.remove(documentID, o) }
}

// Unsubscribe removes whichever observer is registered for the document.
func (b *ProgressBroadcaster) Unsubscribe(documentID string) {
	b.mu.Lock()
	delete(b.observers, documentID)
	b.mu.Unlock()
}

// Publish delivers the event to the current observer, if any. A failed
// delivery deregisters that observer.
func (b *ProgressBroadcaster) Publish(ctx context.Context, documentID string, event domain.ProgressEvent) {
	b.mu.Lock()
	o := b.observers[documentID]
	b.mu.Unlock()

	if o == nil {
		return
	}

	if err := o.sink.Send(ctx, event); err != nil {
		b.log.Debug("dropping observer for %s: %v", documentID, err)
		b.remove(documentID, o)
	}
}

// Observers returns the number of registered observers.
func (b *ProgressBroadcaster) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

func (b *ProgressBroadcaster) remove(documentID string, o *progressObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.observers[documentID] == o {
		delete(b.observers, documentID)
	}
}
