package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/services"
)

// recordingDispatcher records dispatched runs without processing them.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, documentID, sourcePath string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, documentID+"|"+sourcePath)
}

func (d *recordingDispatcher) Active(string) bool { return false }

func (d *recordingDispatcher) Wait() {}

func (d *recordingDispatcher) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

type testEnv struct {
	server     *Server
	store      *memory.DocumentStore
	counters   *memory.StatsStore
	progress   *services.ProgressBroadcaster
	live       *services.LiveSearchNotifier
	dispatcher *recordingDispatcher
	uploadDir  string
}

func setupServer(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	env := &testEnv{
		store:      memory.NewDocumentStore(),
		counters:   memory.NewStatsStore(),
		progress:   services.NewProgressBroadcaster(),
		live:       services.NewLiveSearchNotifier(),
		dispatcher: &recordingDispatcher{},
		uploadDir:  t.TempDir(),
	}
	stats := services.NewStatsService(env.store, env.counters, 0, 1)
	docs := services.NewDocumentService(env.store, nil, env.dispatcher, services.DocumentServiceConfig{
		UploadDir:      env.uploadDir,
		MaxUploadBytes: 1 << 20,
	})

	cfg := Config{
		Addr:           "127.0.0.1:0",
		UploadDir:      env.uploadDir,
		MaxUploadBytes: 1 << 20,
		Version:        "1.2.3",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	server, err := NewServer(&Ports{
		Documents:  docs,
		Search:     services.NewSearchService(env.store, stats),
		Stats:      stats,
		Progress:   env.progress,
		LiveSearch: env.live,
	}, cfg)
	require.NoError(t, err)
	env.server = server
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, doc *domain.Document) string {
	t.Helper()
	id, err := e.store.Create(context.Background(), doc)
	require.NoError(t, err)
	return id
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(nil, Config{})
	assert.ErrorIs(t, err, ErrMissingDocumentService)

	_, err = NewServer(&Ports{}, Config{})
	assert.ErrorIs(t, err, ErrMissingDocumentService)

	env := setupServer(t)
	ports := *env.server.ports
	ports.LiveSearch = nil
	_, err = NewServer(&ports, Config{})
	assert.ErrorIs(t, err, ErrMissingLiveSearchService)

	ports = *env.server.ports
	ports.Progress = nil
	_, err = NewServer(&ports, Config{})
	assert.ErrorIs(t, err, ErrMissingProgressService)
}

func TestServer_RootAndHealth(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "OCR Backend API", body["message"])
	assert.Equal(t, "1.2.3", body["version"])

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotZero(t, body["time"])
}

func TestServer_CORSPreflight(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, httptest.NewRequest(http.MethodOptions, "/api/upload", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_ServesUploads(t *testing.T) {
	env := setupServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.uploadDir, "abc-page-1.png"), pngHeader, 0o644))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/uploads/abc-page-1.png", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	env := setupServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
