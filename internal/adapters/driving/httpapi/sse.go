package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// SSE event names.
const (
	EventProgress = "progress"
	EventMatch    = "match"
	EventStats    = "stats"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// streamConfig tunes one SSE connection.
type streamConfig struct {
	KeepAlive    time.Duration
	WriteTimeout time.Duration
	Buffer       int
}

func (s *Server) streamConfig() streamConfig {
	return streamConfig{
		KeepAlive:    s.cfg.KeepAlive,
		WriteTimeout: s.cfg.EventWriteTimeout,
		Buffer:       s.cfg.EventBuffer,
	}
}

// stream writes Server-Sent Events to one client. Senders only queue frames;
// the handler goroutine drains the queue in serve, so a client that stops
// reading never blocks the pipeline or other subscribers. A full queue or a
// write past its deadline closes the stream.
type stream struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	cfg streamConfig

	mu     sync.Mutex
	frames chan string
	closed bool
	done   chan struct{}
}

func openStream(w http.ResponseWriter, cfg streamConfig) (*stream, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, errStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &stream{
		w:      w,
		rc:     http.NewResponseController(w),
		cfg:    cfg,
		frames: make(chan string, max(cfg.Buffer, 1)),
		done:   make(chan struct{}),
	}
	if err := s.write(commentFrame("ok")); err != nil {
		return nil, err
	}
	return s, nil
}

func commentFrame(text string) string {
	return ":" + strings.ReplaceAll(text, "\n", " ") + "\n\n"
}

func (s *stream) event(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	return s.enqueue("event: " + name + "\ndata: " + string(data) + "\n\n")
}

// enqueue hands a frame to the writer without blocking.
func (s *stream) enqueue(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSinkClosed
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		s.closeLocked()
		return fmt.Errorf("%w: client too slow, %d frames pending", domain.ErrSinkClosed, cap(s.frames))
	}
}

// write sends one frame to the client. Only the handler goroutine writes.
func (s *stream) write(frame string) error {
	if s.cfg.WriteTimeout > 0 {
		err := s.rc.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return s.fail(err)
		}
	}
	if _, err := io.WriteString(s.w, frame); err != nil {
		return s.fail(err)
	}
	if err := s.rc.Flush(); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *stream) fail(err error) error {
	s.close()
	return fmt.Errorf("%w: %v", domain.ErrSinkClosed, err)
}

func (s *stream) close() {
	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()
}

func (s *stream) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// serve writes queued frames until the client goes away, a write fails or
// the stream is closed, sending keep-alive comments in between. The stream
// is closed on return.
func (s *stream) serve(ctx context.Context) {
	defer s.close()
	if s.cfg.WriteTimeout > 0 {
		// The connection may be reused; do not leave a deadline behind.
		defer s.rc.SetWriteDeadline(time.Time{}) //nolint:errcheck
	}

	var tick <-chan time.Time
	if s.cfg.KeepAlive > 0 {
		t := time.NewTicker(s.cfg.KeepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case frame := <-s.frames:
			if err := s.write(frame); err != nil {
				return
			}
		case <-tick:
			if err := s.write(commentFrame("keep-alive")); err != nil {
				return
			}
		}
	}
}

// progressSink adapts a stream to driven.EventSink.
type progressSink struct{ *stream }

func (p progressSink) Send(_ context.Context, event domain.ProgressEvent) error {
	return p.event(EventProgress, event)
}

// matchSink adapts a stream to driven.MatchSink.
type matchSink struct{ *stream }

func (m matchSink) Send(_ context.Context, match domain.LiveMatch) error {
	return m.event(EventMatch, match)
}

// statsSink adapts a stream to driven.StatsSink.
type statsSink struct{ *stream }

func (st statsSink) Send(_ context.Context, stats domain.Stats) error {
	return st.event(EventStats, stats)
}

var (
	_ driven.EventSink = progressSink{}
	_ driven.MatchSink = matchSink{}
	_ driven.StatsSink = statsSink{}
)

func (s *Server) handleProgressEvents(w http.ResponseWriter, r *http.Request) {
	st, err := openStream(w, s.streamConfig())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", err.Error())
		return
	}

	docID := chi.URLParam(r, "docId")
	unsubscribe := s.ports.Progress.Subscribe(docID, progressSink{st})
	defer unsubscribe()

	s.log.Debug("progress observer attached to %s", docID)
	st.serve(r.Context())
	s.log.Debug("progress observer for %s left", docID)
}

func (s *Server) handleSearchEvents(w http.ResponseWriter, r *http.Request) {
	st, err := openStream(w, s.streamConfig())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", err.Error())
		return
	}

	handle := s.ports.LiveSearch.Subscribe(matchSink{st}, r.URL.Query().Get("q"))
	defer s.ports.LiveSearch.Unsubscribe(handle)

	st.serve(r.Context())
}

func (s *Server) handleStatsEvents(w http.ResponseWriter, r *http.Request) {
	st, err := openStream(w, s.streamConfig())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", err.Error())
		return
	}

	sink := statsSink{st}
	unsubscribe := s.ports.Stats.Subscribe(sink)
	defer unsubscribe()

	// New subscribers get the current counters straight away.
	if stats, err := s.ports.Stats.Stats(r.Context()); err == nil {
		_ = sink.Send(r.Context(), stats)
	} else {
		s.log.Warn("initial stats for subscriber: %v", err)
	}

	st.serve(r.Context())
}
