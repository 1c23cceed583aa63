package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Pipeline = (*Pipeline)(nil)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// UploadDir is the root for per-document page directories.
	UploadDir string

	// Retry is the per-page attempt policy.
	Retry RetryPolicy
}

// Pipeline drives one document from its stored upload to recognised pages.
// Pages are processed one at a time; different documents may run
// concurrently on separate Pipeline calls.
type Pipeline struct {
	store      driven.DocumentStore
	rasterizer driven.Rasterizer
	recogniser *PageRecogniser
	progress   driving.ProgressService
	live       driving.LiveSearchService
	stats      driving.StatsService
	uploadDir  string
	retry      RetryPolicy
	now        func() time.Time
	log        logger.Logger
}

// NewPipeline creates a pipeline. stats may be nil.
func NewPipeline(
	store driven.DocumentStore,
	rasterizer driven.Rasterizer,
	recogniser *PageRecogniser,
	progress driving.ProgressService,
	live driving.LiveSearchService,
	stats driving.StatsService,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Pipeline{
		store:      store,
		rasterizer: rasterizer,
		recogniser: recogniser,
		progress:   progress,
		live:       live,
		stats:      stats,
		uploadDir:  cfg.UploadDir,
		retry:      cfg.Retry,
		now:        time.Now,
		log:        logger.With("pipeline"),
	}
}

// PagesDir returns the temporary page image directory for a document.
func PagesDir(uploadDir, documentID string) string {
	return filepath.Join(uploadDir, "pages", documentID)
}

// ProcessDocument runs the document through rasterisation and OCR. It is
// the outermost error boundary of a run: failures end up on the document
// and in the terminal progress event, never in a return value.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentID, sourcePath string) {
	doc, err := p.store.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.log.Warn("document %s not found, nothing to process", documentID)
		} else {
			p.log.Error("load document %s: %v", documentID, err)
		}
		return
	}

	tempDir := PagesDir(p.uploadDir, documentID)
	defer BestEffort("remove page directory", func() error {
		return os.RemoveAll(tempDir)
	})

	p.log.Info("processing %s (%s, %s)", documentID, doc.MimeType, doc.Language)
	if err := p.run(ctx, doc, sourcePath, tempDir); err != nil {
		p.fail(ctx, documentID, err)
	}
}

func (p *Pipeline) run(ctx context.Context, doc *domain.Document, sourcePath, tempDir string) error {
	id := doc.ID

	doc.Status = domain.DocumentProcessing
	doc.UpdatedAt = p.now()
	if err := p.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	p.progress.Publish(ctx, id, domain.NewProcessingEvent(id))

	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("create page directory: %w", err)
	}

	p.progress.Publish(ctx, id, domain.NewConvertingEvent(id))
	paths, err := p.rasterizer.Rasterize(ctx, sourcePath, tempDir, doc.MimeType)
	if err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}
	if len(paths) == 0 {
		return domain.ErrNoPages
	}
	total := len(paths)

	doc.InitPages(total)
	doc.Meta = nil
	doc.UpdatedAt = p.now()
	if err := p.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("initialise pages: %w", err)
	}

	var successful, failed int
	var confidenceSum float64

	for i, path := range paths {
		n := i + 1

		res, attempts, err := Retry(ctx, p.retry, func(ctx context.Context, attempt int) (PageResult, error) {
			p.progress.Publish(ctx, id, domain.NewStartingOCREvent(id, n, total, attempt, p.retry.MaxAttempts))
			page := doc.Page(n)
			page.Status = domain.PageProcessing
			page.Attempts = attempt
			return p.recogniser.Recognise(ctx, doc, n, path)
		})

		processedAt := p.now()
		page := doc.Page(n)

		if err == nil {
			successful++
			confidenceSum += res.Confidence
			*page = domain.Page{
				PageNumber:  n,
				Text:        res.Text,
				Confidence:  res.Confidence,
				Status:      domain.PageDone,
				ProcessedAt: &processedAt,
				Attempts:    attempts,
				WordCount:   res.WordCount,
				CharCount:   res.CharCount,
			}
			doc.UpdatedAt = processedAt
			if err := p.store.Save(ctx, doc); err != nil {
				return fmt.Errorf("save page %d: %w", n, err)
			}

			avg := confidenceSum / float64(successful)
			p.progress.Publish(ctx, id, domain.NewPageCompleteEvent(id, n, total, res.Confidence, successful, failed, avg))
			p.live.NotifyPageProcessed(ctx, doc, *page)
			p.log.Debug("page %d/%d of %s done (%.1f%%)", n, total, id, res.Confidence)
			continue
		}

		failed++
		msg := pageError(err)
		*page = domain.Page{
			PageNumber:  n,
			Status:      domain.PageFailed,
			ProcessedAt: &processedAt,
			Attempts:    attempts,
			Error:       msg,
		}
		doc.UpdatedAt = processedAt
		if err := p.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("save page %d: %w", n, err)
		}
		p.progress.Publish(ctx, id, domain.NewPageFailedEvent(id, n, total, msg, successful, failed, attempts, p.retry.MaxAttempts))
		p.log.Warn("page %d/%d of %s failed after %d attempts: %s", n, total, id, attempts, msg)
	}

	var avg float64
	if successful > 0 {
		avg = confidenceSum / float64(successful)
	}
	doc.Meta = &domain.DocumentMeta{
		TotalPages:        total,
		SuccessfulPages:   successful,
		FailedPages:       failed,
		AverageConfidence: avg,
		CompletedAt:       p.now(),
	}

	if successful == 0 {
		// Keep the page detail and summary for diagnosis.
		doc.UpdatedAt = p.now()
		BestEffort("save failed summary", func() error {
			return p.store.Save(ctx, doc)
		})
		return domain.ErrAllPagesFailed
	}

	doc.Status = domain.DocumentDone
	doc.UpdatedAt = p.now()
	if err := p.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("finalise: %w", err)
	}

	p.progress.Publish(ctx, id, domain.NewDoneEvent(id, total, successful))
	p.refreshStats(ctx)
	p.log.Info("document %s done: %d/%d pages, avg confidence %.1f", id, successful, total, avg)
	return nil
}

// fail reloads the document, marks it failed and emits the terminal event.
func (p *Pipeline) fail(ctx context.Context, documentID string, cause error) {
	p.log.Error("document %s failed: %v", documentID, cause)

	BestEffort("mark document failed", func() error {
		doc, err := p.store.Get(ctx, documentID)
		if err != nil {
			return err
		}
		doc.Status = domain.DocumentFailed
		doc.UpdatedAt = p.now()
		return p.store.Save(ctx, doc)
	})

	p.progress.Publish(ctx, documentID, domain.NewFailedEvent(documentID, cause.Error()))
	p.refreshStats(ctx)
}

func (p *Pipeline) refreshStats(ctx context.Context) {
	if p.stats == nil {
		return
	}
	BestEffort("stats refresh", func() error {
		return p.stats.Refresh(ctx)
	})
}

// pageError returns the message of the last failed attempt.
func pageError(err error) string {
	var re *domain.RetryError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err.Error()
	}
	return err.Error()
}
