package inbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

type upload struct {
	filename string
	language string
	content  string
	skipDup  bool
}

// recordingDocs records uploads. Files named reject-* fail as unsupported.
type recordingDocs struct {
	driving.DocumentService

	mu      sync.Mutex
	uploads []upload
}

func (d *recordingDocs) Upload(_ context.Context, req driving.UploadRequest) (*domain.Document, error) {
	body, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(req.Filename, "reject-") {
		return nil, fmt.Errorf("%w: text/plain", domain.ErrUnsupportedType)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.uploads = append(d.uploads, upload{req.Filename, req.Language, string(body), req.SkipDuplicate})
	return &domain.Document{ID: fmt.Sprintf("doc-%d", len(d.uploads))}, nil
}

func (d *recordingDocs) Uploads() []upload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]upload(nil), d.uploads...)
}

func TestIngest_UploadsAndRemoves(t *testing.T) {
	dir := t.TempDir()
	docs := &recordingDocs{}
	w := New(docs, Config{Dir: dir, Language: "deu"})
	path := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("image"), 0o644))

	require.NoError(t, w.Ingest(context.Background(), path))

	assert.Equal(t, []upload{{"scan.png", "deu", "image", true}}, docs.Uploads())
	assert.NoFileExists(t, path)
}

func TestIngest_RejectedFileIsMoved(t *testing.T) {
	dir := t.TempDir()
	w := New(&recordingDocs{}, Config{Dir: dir})
	path := filepath.Join(dir, "reject-notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	err := w.Ingest(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.NoFileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, RejectedDir, "reject-notes.txt"))
}

func TestIngest_MissingFileIsIgnored(t *testing.T) {
	w := New(&recordingDocs{}, Config{Dir: t.TempDir()})

	assert.NoError(t, w.Ingest(context.Background(), filepath.Join(t.TempDir(), "gone.png")))
}

func TestScanExisting(t *testing.T) {
	dir := t.TempDir()
	docs := &recordingDocs{}
	w := New(docs, Config{Dir: dir})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("h"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf.part"), []byte("p"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reject-c.txt"), []byte("c"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	n, err := w.ScanExisting(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	uploads := docs.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "a.png", uploads[0].filename)
	assert.FileExists(t, filepath.Join(dir, ".hidden.png"))
	assert.FileExists(t, filepath.Join(dir, "b.pdf.part"))
}

func TestEligible(t *testing.T) {
	dir := t.TempDir()
	w := New(&recordingDocs{}, Config{Dir: dir})

	assert.True(t, w.eligible(filepath.Join(dir, "scan.jpg")))
	assert.False(t, w.eligible(filepath.Join(dir, ".DS_Store")))
	assert.False(t, w.eligible(filepath.Join(dir, "scan.jpg~")))
	assert.False(t, w.eligible(filepath.Join(dir, "scan.tmp")))
	assert.False(t, w.eligible(filepath.Join(dir, RejectedDir, "scan.jpg")))
}

func TestRun_IngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	docs := &recordingDocs{}
	w := New(docs, Config{Dir: dir, Settle: 20 * time.Millisecond})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.png"), []byte("old"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(docs.Uploads()) == 1 }, 2*time.Second, 10*time.Millisecond)

	path := filepath.Join(dir, "new.png")
	require.NoError(t, os.WriteFile(path, []byte("new"), 0o644))

	require.Eventually(t, func() bool { return len(docs.Uploads()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "new.png", docs.Uploads()[1].filename)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	w := New(&recordingDocs{}, Config{Dir: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, w.Run(ctx))
	assert.DirExists(t, dir)
}
