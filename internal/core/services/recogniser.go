package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// PageResult is the outcome of recognising one page image.
type PageResult struct {
	Text       string
	Confidence float64
	WordCount  int
	CharCount  int
}

// PageRecogniser runs normalisation and OCR for a single page image.
type PageRecogniser struct {
	engine     driven.OCREngine
	normaliser driven.ImageNormaliser
	progress   driving.ProgressService
	thumbDir   string
	log        logger.Logger
}

// NewPageRecogniser creates a recogniser. Thumbnails are written to thumbDir.
func NewPageRecogniser(
	engine driven.OCREngine,
	normaliser driven.ImageNormaliser,
	progress driving.ProgressService,
	thumbDir string,
) *PageRecogniser {
	return &PageRecogniser{
		engine:     engine,
		normaliser: normaliser,
		progress:   progress,
		thumbDir:   thumbDir,
		log:        logger.With("recogniser"),
	}
}

// Recognise extracts text from one page image of doc. The engine session is
// closed before returning on every path.
func (r *PageRecogniser) Recognise(ctx context.Context, doc *domain.Document, pageNumber int, imagePath string) (PageResult, error) {
	language := doc.Language
	if language == "" {
		language = domain.DefaultLanguage
	}

	r.step(ctx, doc.ID, pageNumber, domain.StepLoadingModel)
	session, err := r.engine.Open(ctx, language)
	if err != nil {
		return PageResult{}, fmt.Errorf("load %s model: %w", language, err)
	}
	defer func() {
		r.step(ctx, doc.ID, pageNumber, domain.StepCleanup)
		BestEffort("close ocr session", session.Close)
	}()

	r.step(ctx, doc.ID, pageNumber, domain.StepPreprocessing)
	img, err := r.prepare(ctx, imagePath)
	if err != nil {
		return PageResult{}, fmt.Errorf("read page image: %w", err)
	}

	r.step(ctx, doc.ID, pageNumber, domain.StepRecognizing)
	out, err := session.Recognise(ctx, img)
	if err != nil {
		return PageResult{}, fmt.Errorf("recognise page %d: %w", pageNumber, err)
	}

	if doc.ContentHash != "" && r.thumbDir != "" {
		dst := filepath.Join(r.thumbDir, domain.ThumbnailName(doc.ContentHash, pageNumber))
		BestEffort("thumbnail", func() error {
			return r.normaliser.Thumbnail(ctx, imagePath, dst)
		})
	}

	words := len(out.Words)
	if out.Words == nil {
		words = len(strings.Fields(out.Text))
	}

	return PageResult{
		Text:       out.Text,
		Confidence: domain.ClampConfidence(out.Confidence),
		WordCount:  words,
		CharCount:  utf8.RuneCountInString(out.Text),
	}, nil
}

// prepare returns image bytes for recognition, degrading from the full
// pipeline to the minimal transform to the raw file.
func (r *PageRecogniser) prepare(ctx context.Context, path string) ([]byte, error) {
	img, err := r.normaliser.Normalise(ctx, path)
	if err == nil {
		return img, nil
	}
	r.log.Warn("preprocessing %s failed, trying minimal: %v", filepath.Base(path), err)

	img, err = r.normaliser.NormaliseMinimal(ctx, path)
	if err == nil {
		return img, nil
	}
	r.log.Warn("minimal preprocessing %s failed, using original: %v", filepath.Base(path), err)

	return os.ReadFile(path)
}

func (r *PageRecogniser) step(ctx context.Context, documentID string, page int, step domain.PageStep) {
	r.progress.Publish(ctx, documentID, domain.NewPageStepEvent(documentID, page, step))
}
