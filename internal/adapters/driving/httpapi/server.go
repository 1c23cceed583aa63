package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/docscan/internal/logger"
)

// multipartOverhead is added to the upload limit to leave room for form
// fields and part headers.
const multipartOverhead = 1 << 20

const (
	defaultEventWriteTimeout = 10 * time.Second
	defaultEventBuffer       = 64
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// UploadDir is served under /uploads/.
	UploadDir string

	// MaxUploadBytes bounds the request body of an upload. Zero disables the limit.
	MaxUploadBytes int64

	// KeepAlive is the interval between SSE comment frames. Zero disables them.
	KeepAlive time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// EventWriteTimeout bounds one SSE write. Clients that stop reading are
	// disconnected when it expires. Zero uses defaultEventWriteTimeout.
	EventWriteTimeout time.Duration

	// EventBuffer is how many frames may queue for one SSE client before it
	// is dropped. Zero uses defaultEventBuffer.
	EventBuffer int

	// Version is reported by the root endpoint.
	Version string
}

// Server serves the docscan HTTP API.
type Server struct {
	ports  *Ports
	cfg    Config
	router chi.Router
	now    func() time.Time
	log    logger.Logger
}

// NewServer creates a server and builds its routes.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingDocumentService
	}
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.EventWriteTimeout <= 0 {
		cfg.EventWriteTimeout = defaultEventWriteTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}

	s := &Server{
		ports: ports,
		cfg:   cfg,
		now:   time.Now,
		log:   logger.With("http"),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)

	r.Get("/", s.handleRoot)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/upload", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/doc/{id}", s.handleGetDocument)
		r.Get("/doc/{id}/content", s.handleGetContent)
		r.Post("/reprocess/{docId}", s.handleReprocess)

		r.Get("/search", s.handleSearch)

		r.Get("/stats", s.handleStats)
		r.Post("/stats/increment-search", s.handleIncrementSearch)

		r.Route("/events", func(r chi.Router) {
			r.Get("/stats", s.handleStatsEvents)
			r.Get("/search", s.handleSearchEvents)
			r.Get("/{docId}", s.handleProgressEvents)
		})
	})

	if s.cfg.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir)))
		r.Handle("/uploads/*", fs)
	}

	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully. Open event streams are closed when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %s [%s]", r.Method, r.URL.Path, ww.Status(),
			time.Since(start).Round(time.Millisecond), chimiddleware.GetReqID(r.Context()))
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Cache-Control")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
