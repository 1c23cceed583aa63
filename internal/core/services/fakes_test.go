package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// ==================== Sinks ====================

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	err    error
}

func (r *eventRecorder) Send(_ context.Context, e domain.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) all() []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProgressEvent(nil), r.events...)
}

func (r *eventRecorder) kinds() []domain.ProgressKind {
	var out []domain.ProgressKind
	for _, e := range r.all() {
		out = append(out, e.Kind)
	}
	return out
}

// ofKind returns events of kind k in order.
func (r *eventRecorder) ofKind(k domain.ProgressKind) []domain.ProgressEvent {
	var out []domain.ProgressEvent
	for _, e := range r.all() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

type matchRecorder struct {
	mu      sync.Mutex
	matches []domain.LiveMatch
	err     error
}

func (r *matchRecorder) Send(_ context.Context, m domain.LiveMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.matches = append(r.matches, m)
	return nil
}

func (r *matchRecorder) all() []domain.LiveMatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LiveMatch(nil), r.matches...)
}

type statsRecorder struct {
	mu    sync.Mutex
	stats []domain.Stats
	err   error
}

func (r *statsRecorder) Send(_ context.Context, s domain.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.stats = append(r.stats, s)
	return nil
}

func (r *statsRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stats)
}

func (r *statsRecorder) last() domain.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stats) == 0 {
		return domain.Stats{}
	}
	return r.stats[len(r.stats)-1]
}

// ==================== Rasterizer ====================

// fakeRasterizer writes n empty page files into outputDir.
type fakeRasterizer struct {
	pages int
	err   error
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _, outputDir, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	paths := make([]string, 0, f.pages)
	for i := 1; i <= f.pages; i++ {
		p := filepath.Join(outputDir, "page-"+strconv.Itoa(i)+".png")
		if err := os.WriteFile(p, []byte(p), 0o600); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ==================== Normaliser ====================

// fakeNormaliser returns the file name as the "image" so the engine can
// tell pages apart.
type fakeNormaliser struct {
	mu           sync.Mutex
	fullErr      error
	minimalErr   error
	thumbErr     error
	minimalCalls int
	thumbnails   []string
}

func (f *fakeNormaliser) Normalise(_ context.Context, path string) ([]byte, error) {
	if f.fullErr != nil {
		return nil, f.fullErr
	}
	return []byte(filepath.Base(path)), nil
}

func (f *fakeNormaliser) NormaliseMinimal(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.minimalCalls++
	f.mu.Unlock()
	if f.minimalErr != nil {
		return nil, f.minimalErr
	}
	return []byte("minimal:" + filepath.Base(path)), nil
}

func (f *fakeNormaliser) Thumbnail(_ context.Context, _, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbnails = append(f.thumbnails, dst)
	return f.thumbErr
}

// ==================== OCR engine ====================

// pageScript describes how the engine responds to one page image.
// failures is the number of leading attempts that fail.
type pageScript struct {
	text       string
	confidence float64
	words      []driven.OCRWord
	failures   int
	err        error
}

type fakeEngine struct {
	mu        sync.Mutex
	scripts   map[string]*pageScript
	calls     map[string]int
	languages []string
	images    [][]byte
	opens     int
	closes    int
	openErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		scripts: make(map[string]*pageScript),
		calls:   make(map[string]int),
	}
}

// page scripts the response for page n ("page-n.png").
func (e *fakeEngine) page(n int, s pageScript) *fakeEngine {
	e.scripts["page-"+strconv.Itoa(n)+".png"] = &s
	return e
}

func (e *fakeEngine) Open(_ context.Context, language string) (driven.OCRSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.opens++
	e.languages = append(e.languages, language)
	return &fakeSession{engine: e}, nil
}

func (e *fakeEngine) balanced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens == e.closes
}

type fakeSession struct {
	engine *fakeEngine
}

var errOCR = errors.New("engine crashed")

func (s *fakeSession) Recognise(_ context.Context, img []byte) (driven.OCRResult, error) {
	e := s.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	key := string(img)
	e.images = append(e.images, img)
	e.calls[key]++

	script, ok := e.scripts[key]
	if !ok {
		return driven.OCRResult{Text: "text of " + key, Confidence: 80}, nil
	}
	if e.calls[key] <= script.failures {
		if script.err != nil {
			return driven.OCRResult{}, script.err
		}
		return driven.OCRResult{}, errOCR
	}
	return driven.OCRResult{Text: script.text, Confidence: script.confidence, Words: script.words}, nil
}

func (s *fakeSession) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.closes++
	return nil
}

// ==================== Dispatcher ====================

type dispatchCall struct {
	id, path string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchCall
	active map[string]bool
}

func (d *fakeDispatcher) Dispatch(_ context.Context, id, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{id: id, path: path})
}

func (d *fakeDispatcher) Active(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active[id]
}

func (d *fakeDispatcher) Wait() {}

// ==================== Pipeline ====================

type pipelineCall struct {
	id, path string
}

// blockingPipeline records calls and blocks each until release is closed.
type blockingPipeline struct {
	mu      sync.Mutex
	calls   []pipelineCall
	running int
	peak    int
	started chan string
	release chan struct{}
}

func newBlockingPipeline() *blockingPipeline {
	return &blockingPipeline{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (p *blockingPipeline) ProcessDocument(ctx context.Context, id, path string) {
	p.mu.Lock()
	p.calls = append(p.calls, pipelineCall{id: id, path: path})
	p.running++
	p.peak = max(p.peak, p.running)
	p.mu.Unlock()

	p.started <- id
	select {
	case <-p.release:
	case <-ctx.Done():
	}

	p.mu.Lock()
	p.running--
	p.mu.Unlock()
}
