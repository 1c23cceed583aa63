package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "docscan.db"))
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func processedDoc(title string, texts ...string) *domain.Document {
	doc := &domain.Document{
		Title:            title,
		OriginalFilename: title + ".pdf",
		StoredFilename:   "hash-" + title + ".pdf",
		ContentHash:      "hash-" + title,
		MimeType:         "application/pdf",
		Size:             1024,
		Language:         domain.DefaultLanguage,
		Status:           domain.DocumentDone,
	}
	doc.InitPages(len(texts))
	processed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, text := range texts {
		doc.Pages[i].Text = text
		doc.Pages[i].Status = domain.PageDone
		doc.Pages[i].Confidence = 90
		doc.Pages[i].Attempts = 1
		doc.Pages[i].ProcessedAt = &processed
	}
	return doc
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docscan.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docscan.db")

	first, err := NewStore(path)
	require.NoError(t, err)
	_, err = first.DocumentStore().Create(context.Background(), processedDoc("kept", "text"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer second.Close()

	var versions int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)

	count, err := second.DocumentStore().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	doc := processedDoc("invoice", "Total due", "Thank you")
	doc.Meta = &domain.DocumentMeta{TotalPages: 2, SuccessfulPages: 2, AverageConfidence: 90}

	id, err := docs.Create(ctx, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := docs.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "invoice", got.Title)
	assert.Equal(t, "application/pdf", got.MimeType)
	assert.Equal(t, int64(1024), got.Size)
	assert.Equal(t, domain.DocumentDone, got.Status)
	require.Len(t, got.Pages, 2)
	assert.Equal(t, 1, got.Pages[0].PageNumber)
	assert.Equal(t, "Thank you", got.Pages[1].Text)
	require.NotNil(t, got.Pages[0].ProcessedAt)
	require.NotNil(t, got.Meta)
	assert.Equal(t, 2, got.Meta.SuccessfulPages)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDocumentStore_CreateDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.DocumentStore().Create(ctx, &domain.Document{ID: "fixed", Status: domain.DocumentQueued})
	require.NoError(t, err)

	_, err = store.DocumentStore().Create(ctx, &domain.Document{ID: "fixed", Status: domain.DocumentQueued})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.DocumentStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveReplacesPages(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	doc := processedDoc("scan", "one", "two", "three")
	_, err := docs.Create(ctx, doc)
	require.NoError(t, err)

	doc.Pages = []domain.Page{{PageNumber: 1, Status: domain.PageFailed, Error: "tesseract crashed", Attempts: 2}}
	doc.Status = domain.DocumentFailed
	doc.Meta = nil
	require.NoError(t, docs.Save(ctx, doc))

	got, err := docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, got.Status)
	assert.Nil(t, got.Meta)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, "tesseract crashed", got.Pages[0].Error)
	assert.Nil(t, got.Pages[0].ProcessedAt)

	pages, err := docs.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestDocumentStore_SaveMissing(t *testing.T) {
	store := setupTestStore(t)

	err := store.DocumentStore().Save(context.Background(), &domain.Document{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListOrdersByUpdate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first := processedDoc("first", "a")
	_, err := docs.Create(ctx, first)
	require.NoError(t, err)
	_, err = docs.Create(ctx, processedDoc("second", "b"))
	require.NoError(t, err)
	_, err = docs.Create(ctx, processedDoc("third"))
	require.NoError(t, err)

	require.NoError(t, docs.Save(ctx, first))

	list, err := docs.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "third", list[1].Title)

	rest, err := docs.List(ctx, 10, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "second", rest[0].Title)

	count, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDocumentStore_Search(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	_, err := docs.Create(ctx, processedDoc("Quarterly Report", "nothing here"))
	require.NoError(t, err)
	_, err = docs.Create(ctx, processedDoc("memo", "the REPORT is attached"))
	require.NoError(t, err)
	_, err = docs.Create(ctx, processedDoc("Straße", "Öffnungszeiten"))
	require.NoError(t, err)
	_, err = docs.Create(ctx, processedDoc("receipt", "coffee"))
	require.NoError(t, err)

	results, err := docs.Search(ctx, "  report", 10, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = docs.Search(ctx, "ÖFFNUNG", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Straße", results[0].Title)

	results, err = docs.Search(ctx, "report", 1, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = docs.Search(ctx, "   ", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDocumentStore_FindByHashAndStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	docs := store.DocumentStore()

	running := processedDoc("running")
	running.Status = domain.DocumentProcessing
	_, err := docs.Create(ctx, running)
	require.NoError(t, err)
	_, err = docs.Create(ctx, processedDoc("done", "x"))
	require.NoError(t, err)

	found, err := docs.FindByHash(ctx, "hash-done")
	require.NoError(t, err)
	assert.Equal(t, "done", found.Title)

	_, err = docs.FindByHash(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	processing, err := docs.ListByStatus(ctx, domain.DocumentProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, running.ID, processing[0].ID)
}

func TestStatsStore_Searches(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	stats := store.StatsStore()

	n, err := stats.Searches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = stats.IncrementSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = stats.IncrementSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = stats.Searches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
