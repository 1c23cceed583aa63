package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentServiceConfig configures a DocumentService.
type DocumentServiceConfig struct {
	// UploadDir is where uploads are stored as {hash}{ext}.
	UploadDir string

	// DefaultLanguage applies when an upload names none.
	DefaultLanguage string

	// MaxUploadBytes bounds upload size. Zero means unlimited.
	MaxUploadBytes int64
}

// DocumentService manages uploaded documents.
type DocumentService struct {
	docStore   driven.DocumentStore
	validator  driven.SourceValidator
	dispatcher driving.Dispatcher
	cfg        DocumentServiceConfig
	now        func() time.Time
	log        logger.Logger
}

// NewDocumentService creates a new document service.
// The validator parameter is optional (can be nil).
func NewDocumentService(
	docStore driven.DocumentStore,
	validator driven.SourceValidator,
	dispatcher driving.Dispatcher,
	cfg DocumentServiceConfig,
) *DocumentService {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = domain.DefaultLanguage
	}
	return &DocumentService{
		docStore:   docStore,
		validator:  validator,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
		log:        logger.With("documents"),
	}
}

// Upload stores the file under its content hash, creates a queued
// document and dispatches processing.
func (s *DocumentService) Upload(ctx context.Context, req driving.UploadRequest) (*domain.Document, error) {
	if req.Content == nil || strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: no file provided", domain.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.cfg.UploadDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hash, size, err := s.copyHashed(tmp, req.Content)
	closeErr := tmp.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, fmt.Errorf("write upload: %w", closeErr)
	}

	if req.SkipDuplicate {
		existing, err := s.docStore.FindByHash(ctx, hash)
		if err == nil {
			s.log.Info("%s duplicates document %s, skipping", req.Filename, existing.ID)
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find by hash: %w", err)
		}
	}

	mimeType, err := detectMime(tmpPath, req.Filename, req.MimeType)
	if err != nil {
		return nil, err
	}

	if s.validator != nil {
		pages, err := s.validator.Validate(ctx, tmpPath, mimeType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		s.log.Debug("validated %s: %d pages", req.Filename, pages)
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))
	if ext == "" {
		ext = defaultExtension(mimeType)
	}
	stored := hash + ext
	if err := os.Rename(tmpPath, filepath.Join(s.cfg.UploadDir, stored)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Filename
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.cfg.DefaultLanguage
	}

	now := s.now()
	doc := &domain.Document{
		Title:            title,
		OriginalFilename: req.Filename,
		StoredFilename:   stored,
		ContentHash:      hash,
		MimeType:         mimeType,
		Size:             size,
		Language:         language,
		Status:           domain.DocumentQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	id, err := s.docStore.Create(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	doc.ID = id

	s.log.Info("uploaded %s as %s (%s, %d bytes)", req.Filename, id, mimeType, size)
	s.dispatcher.Dispatch(ctx, id, s.SourcePath(doc))
	return doc, nil
}

func (s *DocumentService) copyHashed(dst io.Writer, src io.Reader) (string, int64, error) {
	h := sha256.New()
	r := src
	if s.cfg.MaxUploadBytes > 0 {
		r = io.LimitReader(src, s.cfg.MaxUploadBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(dst, h), r)
	if err != nil {
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	if s.cfg.MaxUploadBytes > 0 && n > s.cfg.MaxUploadBytes {
		return "", 0, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, s.cfg.MaxUploadBytes)
	}
	if n == 0 {
		return "", 0, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// detectMime prefers a declared type, then the extension, then sniffing.
func detectMime(path, filename, declared string) (string, error) {
	mimeType := declared
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if mimeType == "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("sniff upload: %w", err)
		}
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		f.Close()
		mimeType = http.DetectContentType(head[:n])
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	if mimeType != "application/pdf" && !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
	return mimeType, nil
}

func defaultExtension(mimeType string) string {
	if mimeType == "application/pdf" {
		return ".pdf"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.Get(ctx, documentID)
}

// List returns documents, most recently updated first.
func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	return s.docStore.List(ctx, limit, offset)
}

// GetContent returns the text of all done pages in page order.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	doc, err := s.docStore.Get(ctx, documentID)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, p := range doc.Pages {
		if p.Status == domain.PageDone && p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// SourcePath returns the stored upload path {uploadDir}/{hash}{ext}.
func (s *DocumentService) SourcePath(doc *domain.Document) string {
	return filepath.Join(s.cfg.UploadDir, doc.ContentHash+doc.Extension())
}

// Reprocess resets every page to pending, marks the document queued and
// dispatches a new run. Overlapping reprocess calls for the same document
// are not arbitrated.
func (s *DocumentService) Reprocess(ctx context.Context, documentID, language string) (*domain.Document, error) {
	doc, err := s.docStore.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if s.dispatcher.Active(documentID) {
		s.log.Warn("reprocessing %s while a run is still active", documentID)
	}

	doc.ResetPages()
	doc.Status = domain.DocumentQueued
	if language = strings.TrimSpace(language); language != "" {
		doc.Language = language
	}
	doc.UpdatedAt = s.now()

	if err := s.docStore.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("reset document: %w", err)
	}

	path := s.SourcePath(doc)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.log.Warn("stored file for %s missing at %s", documentID, path)
	}

	s.dispatcher.Dispatch(ctx, documentID, path)
	return doc, nil
}
