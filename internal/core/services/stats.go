package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// StatsService computes global counters and broadcasts them to every
// subscriber. Broadcasts are throttled by a token bucket; a refresh that
// arrives while throttled is coalesced into one trailing broadcast.
type StatsService struct {
	docs     driven.DocumentStore
	counters driven.StatsStore
	limiter  *rate.Limiter

	mu       sync.Mutex
	sinks    map[*statsSubscriber]struct{}
	trailing bool
	log      logger.Logger
}

type statsSubscriber struct {
	sink driven.StatsSink
}

// NewStatsService creates a stats service. A zero minInterval disables
// throttling.
func NewStatsService(docs driven.DocumentStore, counters driven.StatsStore, minInterval time.Duration, burst int) *StatsService {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &StatsService{
		docs:     docs,
		counters: counters,
		limiter:  rate.NewLimiter(limit, max(burst, 1)),
		sinks:    make(map[*statsSubscriber]struct{}),
		log:      logger.With("stats"),
	}
}

// Stats computes the current counters from the repository.
func (s *StatsService) Stats(ctx context.Context) (domain.Stats, error) {
	documents, err := s.docs.Count(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count documents: %w", err)
	}
	pages, err := s.docs.PageCount(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count pages: %w", err)
	}
	searches, err := s.counters.Searches(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("read search counter: %w", err)
	}
	return domain.Stats{Documents: documents, Pages: pages, Searches: searches}, nil
}

// IncrementSearches bumps the persistent search counter and broadcasts.
func (s *StatsService) IncrementSearches(ctx context.Context) (domain.Stats, error) {
	if _, err := s.counters.IncrementSearches(ctx); err != nil {
		return domain.Stats{}, fmt.Errorf("increment searches: %w", err)
	}
	BestEffort("stats refresh", func() error {
		return s.Refresh(ctx)
	})
	return s.Stats(ctx)
}

// Subscribe registers a sink for broadcasts.
func (s *StatsService) Subscribe(sink driven.StatsSink) func() {
	sub := &statsSubscriber{sink: sink}

	s.mu.Lock()
	s.sinks[sub] = struct{}{}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.sinks, sub)
		s.mu.Unlock()
	}
}

// Refresh recomputes the counters and broadcasts them. When throttled the
// broadcast is deferred and merged with any other deferred refresh.
func (s *StatsService) Refresh(ctx context.Context) error {
	r := s.limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return s.broadcast(ctx)
	}

	s.mu.Lock()
	if s.trailing {
		s.mu.Unlock()
		r.Cancel()
		return nil
	}
	s.trailing = true
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.trailing = false
		s.mu.Unlock()
		BestEffort("deferred stats broadcast", func() error {
			return s.broadcast(bg)
		})
	})
	return nil
}

func (s *StatsService) broadcast(ctx context.Context) error {
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	subs := make([]*statsSubscriber, 0, len(s.sinks))
	for sub := range s.sinks {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.sink.Send(ctx, stats); err != nil {
			s.log.Debug("dropping stats subscriber: %v", err)
			s.mu.Lock()
			delete(s.sinks, sub)
			s.mu.Unlock()
		}
	}
	return nil
}
