package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Documents are copied on the way in and out so callers never share
// page slices with the store.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*entry
	seq       int
	now       func() time.Time
}

type entry struct {
	doc domain.Document
	seq int
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]*entry),
		now:       time.Now,
	}
}

func (s *DocumentStore) Create(_ context.Context, doc *domain.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := s.documents[doc.ID]; exists {
		return "", fmt.Errorf("document %s: %w", doc.ID, domain.ErrAlreadyExists)
	}

	now := s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	s.seq++
	s.documents[doc.ID] = &entry{doc: clone(doc), seq: s.seq}
	return doc.ID, nil
}

func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := clone(&e.doc)
	return &doc, nil
}

func (s *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.documents[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}

	doc.CreatedAt = e.doc.CreatedAt
	doc.UpdatedAt = s.now()
	s.seq++
	e.doc = clone(doc)
	e.seq = s.seq
	return nil
}

func (s *DocumentStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

func (s *DocumentStore) PageCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, e := range s.documents {
		total += len(e.doc.Pages)
	}
	return total, nil
}

func (s *DocumentStore) List(_ context.Context, limit, offset int) ([]domain.Document, error) {
	return s.collect(func(*domain.Document) bool { return true }, limit, offset), nil
}

// Search matches the query case-insensitively against titles and page text.
func (s *DocumentStore) Search(_ context.Context, query string, limit, offset int) ([]domain.Document, error) {
	q := domain.NormaliseQuery(query)
	if q == "" {
		return nil, nil
	}
	return s.collect(func(d *domain.Document) bool {
		if domain.ContainsFold(d.Title, q) {
			return true
		}
		for _, p := range d.Pages {
			if domain.ContainsFold(p.Text, q) {
				return true
			}
		}
		return false
	}, limit, offset), nil
}

func (s *DocumentStore) FindByHash(_ context.Context, hash string) (*domain.Document, error) {
	docs := s.collect(func(d *domain.Document) bool { return d.ContentHash == hash }, 1, 0)
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &docs[0], nil
}

func (s *DocumentStore) ListByStatus(_ context.Context, status domain.DocumentStatus) ([]domain.Document, error) {
	return s.collect(func(d *domain.Document) bool { return d.Status == status }, 0, 0), nil
}

// collect returns matching documents, most recently written first.
// A limit of zero returns everything after offset.
func (s *DocumentStore) collect(match func(*domain.Document) bool, limit, offset int) []domain.Document {
	s.mu.RLock()
	matched := make([]*entry, 0, len(s.documents))
	for _, e := range s.documents {
		if match(&e.doc) {
			matched = append(matched, e)
		}
	}
	slices.SortFunc(matched, func(a, b *entry) int { return b.seq - a.seq })

	var out []domain.Document
	for i, e := range matched {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, clone(&e.doc))
	}
	s.mu.RUnlock()
	return out
}

func clone(doc *domain.Document) domain.Document {
	c := *doc
	c.Pages = slices.Clone(doc.Pages)
	for i := range c.Pages {
		if t := c.Pages[i].ProcessedAt; t != nil {
			processed := *t
			c.Pages[i].ProcessedAt = &processed
		}
	}
	if doc.Meta != nil {
		meta := *doc.Meta
		c.Meta = &meta
	}
	return c
}

// StatsStore keeps the search counter in memory.
type StatsStore struct {
	mu       sync.Mutex
	searches int
}

// Ensure StatsStore implements the interface.
var _ driven.StatsStore = (*StatsStore)(nil)

// NewStatsStore creates a counter starting at zero.
func NewStatsStore() *StatsStore {
	return &StatsStore{}
}

func (s *StatsStore) IncrementSearches(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	return s.searches, nil
}

func (s *StatsStore) Searches(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches, nil
}
