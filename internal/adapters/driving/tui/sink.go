package tui

import (
	"context"
	"sync"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// Ensure ChannelSink implements the interface.
var _ driven.EventSink = (*ChannelSink)(nil)

// ChannelSink delivers progress events into a buffered channel read by the
// Bubbletea loop. Send drops the event rather than block when the buffer is
// full; the view reconciles from document snapshots.
type ChannelSink struct {
	mu     sync.Mutex
	ch     chan domain.ProgressEvent
	closed bool
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan domain.ProgressEvent, max(buffer, 1))}
}

// Send queues an event.
func (s *ChannelSink) Send(_ context.Context, event domain.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSinkClosed
	}
	select {
	case s.ch <- event:
	default:
	}
	return nil
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan domain.ProgressEvent {
	return s.ch
}

// Close stops delivery and closes the channel. Safe to call twice.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
