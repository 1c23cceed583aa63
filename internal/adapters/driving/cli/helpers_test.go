package cli

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/docscan/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/core/services"
)

// testStore is the document store behind the services installed by
// setupTestServices.
var testStore *memory.DocumentStore

// scriptedPipeline finishes every run with a single recognised page.
// Uploads whose file name contains "fail" end failed instead.
type scriptedPipeline struct {
	store    *memory.DocumentStore
	progress driving.ProgressService
}

func (p *scriptedPipeline) ProcessDocument(ctx context.Context, documentID, sourcePath string) {
	doc, err := p.store.Get(ctx, documentID)
	if err != nil {
		return
	}
	p.progress.Publish(ctx, documentID, domain.NewProcessingEvent(documentID))

	if strings.Contains(doc.OriginalFilename, "fail") {
		doc.Status = domain.DocumentFailed
		_ = p.store.Save(ctx, doc)
		p.progress.Publish(ctx, documentID, domain.NewFailedEvent(documentID, "no pages found"))
		return
	}

	now := time.Now()
	doc.Status = domain.DocumentDone
	doc.Pages = []domain.Page{{
		PageNumber:  1,
		Text:        "Invoice 42 from " + doc.Language,
		Confidence:  91,
		Status:      domain.PageDone,
		ProcessedAt: &now,
		Attempts:    1,
		WordCount:   4,
	}}
	doc.Meta = &domain.DocumentMeta{TotalPages: 1, SuccessfulPages: 1, AverageConfidence: 91, CompletedAt: now}
	_ = p.store.Save(ctx, doc)

	p.progress.Publish(ctx, documentID, domain.NewPageCompleteEvent(documentID, 1, 1, 91, 1, 0, 91))
	p.progress.Publish(ctx, documentID, domain.NewDoneEvent(documentID, 1, 1))
}

// setupTestServices installs real services over memory stores and returns
// a cleanup func restoring the unconfigured state.
func setupTestServices() func() {
	uploadDir, err := os.MkdirTemp("", "docscan-cli-*")
	if err != nil {
		panic(err)
	}

	store := memory.NewDocumentStore()
	counters := memory.NewStatsStore()
	progress := services.NewProgressBroadcaster()
	live := services.NewLiveSearchNotifier()
	stats := services.NewStatsService(store, counters, 0, 1)
	disp := services.NewDispatcher(&scriptedPipeline{store: store, progress: progress}, 1)
	docs := services.NewDocumentService(store, nil, disp, services.DocumentServiceConfig{UploadDir: uploadDir})

	cfg := domain.DefaultSettings()
	cfg.Storage.Driver = domain.StorageMemory
	cfg.Storage.UploadDir = uploadDir

	testStore = store
	apply(&Services{
		Documents:  docs,
		Search:     services.NewSearchService(store, stats),
		Stats:      stats,
		Settings:   services.NewSettingsService(memory.NewConfigStore()),
		Progress:   progress,
		LiveSearch: live,
		Dispatcher: disp,
		Config:     &cfg,
	})

	originalInteractive := interactive
	interactive = func() bool { return false }

	return func() {
		disp.Wait()
		apply(&Services{})
		testStore = nil
		interactive = originalInteractive
		resetFlags()
		_ = os.RemoveAll(uploadDir)
	}
}

func resetFlags() {
	searchLimit, searchPage, searchJSON = 10, 1, false
	documentListLimit, documentListOffset = 20, 0
	statsJSON = false
	processLanguage, processTitle, processPlain = "", "", false
	reprocessLanguage, reprocessPlain = "", false
	serveAddr, serveInbox = "", ""
}

// seedDocument stores a finished document with the given page texts.
func seedDocument(title string, texts ...string) *domain.Document {
	now := time.Now()
	doc := &domain.Document{
		Title:            title,
		OriginalFilename: title + ".png",
		StoredFilename:   "abc.png",
		ContentHash:      "abc",
		MimeType:         "image/png",
		Size:             10,
		Language:         domain.DefaultLanguage,
		Status:           domain.DocumentDone,
	}
	for i, text := range texts {
		doc.Pages = append(doc.Pages, domain.Page{
			PageNumber:  i + 1,
			Text:        text,
			Confidence:  88,
			Status:      domain.PageDone,
			ProcessedAt: &now,
			Attempts:    1,
			WordCount:   len(strings.Fields(text)),
		})
	}
	if _, err := testStore.Create(context.Background(), doc); err != nil {
		panic(err)
	}
	return doc
}

var errBoom = errors.New("boom")

// failingDocuments fails every call.
type failingDocuments struct {
	driving.DocumentService
}

func (failingDocuments) List(context.Context, int, int) ([]domain.Document, error) {
	return nil, errBoom
}

func (failingDocuments) Get(context.Context, string) (*domain.Document, error) {
	return nil, errBoom
}

func (failingDocuments) GetContent(context.Context, string) (string, error) {
	return "", errBoom
}

func (failingDocuments) Reprocess(context.Context, string, string) (*domain.Document, error) {
	return nil, errBoom
}

// failingSearch fails every query.
type failingSearch struct{}

func (failingSearch) Search(context.Context, string, domain.SearchOptions) (*domain.SearchResponse, error) {
	return nil, errBoom
}
