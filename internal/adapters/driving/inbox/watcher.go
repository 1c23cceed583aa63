// Package inbox uploads files dropped into a watched directory.
//
// Files are picked up once they have stopped changing for the settle
// delay, uploaded through the document service (which dispatches OCR) and
// removed from the inbox. Files the service rejects as invalid are moved
// into the rejected/ subdirectory so they are not retried forever.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// RejectedDir is the subdirectory rejected files are moved into.
const RejectedDir = "rejected"

// DefaultSettle is how long a file must be quiet before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dir is the watched directory. Created if missing.
	Dir string

	// Settle is the quiet period before a file is ingested.
	Settle time.Duration

	// Language is the OCR language for ingested files. Empty uses the default.
	Language string
}

// Watcher watches a directory and uploads new files.
type Watcher struct {
	docs driving.DocumentService
	cfg  Config
	log  logger.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher.
func New(docs driving.DocumentService, cfg Config) *Watcher {
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return &Watcher{
		docs:    docs,
		cfg:     cfg,
		log:     logger.With("inbox"),
		pending: make(map[string]*time.Timer),
	}
}

// Run ingests files already present, then watches for new ones until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info("watching %s", w.cfg.Dir)

	if _, err := w.ScanExisting(ctx); err != nil {
		w.log.Warn("initial scan: %v", err)
	}

	ready := make(chan string)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name, ready)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error: %v", err)

		case path := <-ready:
			if err := w.Ingest(ctx, path); err != nil {
				w.log.Warn("ingest %s: %v", filepath.Base(path), err)
			}
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	if !w.eligible(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.cfg.Settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.cfg.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// ScanExisting ingests every eligible file currently in the inbox and
// returns how many were uploaded.
func (w *Watcher) ScanExisting(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		path := filepath.Join(w.cfg.Dir, e.Name())
		if e.IsDir() || !w.eligible(path) {
			continue
		}
		if err := w.Ingest(ctx, path); err != nil {
			w.log.Warn("ingest %s: %v", e.Name(), err)
			continue
		}
		count++
	}
	return count, nil
}

// Ingest uploads one file and removes it from the inbox.
func (w *Watcher) Ingest(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	doc, err := w.docs.Upload(ctx, driving.UploadRequest{
		Filename:      filepath.Base(path),
		Language:      w.cfg.Language,
		Content:       f,
		SkipDuplicate: true,
	})
	f.Close()

	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrUnsupportedType) {
			if rerr := w.reject(path); rerr != nil {
				return errors.Join(err, rerr)
			}
		}
		return err
	}

	w.log.Info("ingested %s as %s", filepath.Base(path), doc.ID)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove ingested file: %w", err)
	}
	return nil
}

func (w *Watcher) reject(path string) error {
	dir := filepath.Join(w.cfg.Dir, RejectedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}

// eligible skips hidden and partial files and anything outside the inbox root.
func (w *Watcher) eligible(path string) bool {
	if filepath.Dir(path) != filepath.Clean(w.cfg.Dir) {
		return false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".part", ".tmp", ".crdownload":
		return false
	}
	return true
}
