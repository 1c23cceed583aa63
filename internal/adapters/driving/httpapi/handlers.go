package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

// defaultListLimit is used by the document list when no limit is given.
const defaultListLimit = 50

// DocumentDTO is the JSON view of a document.
type DocumentDTO struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	OriginalName string    `json:"originalname"`
	Filename     string    `json:"filename"`
	Hash         string    `json:"hash"`
	Mime         string    `json:"mime"`
	Size         int64     `json:"size"`
	OCRLanguage  string    `json:"ocrLanguage"`
	Status       string    `json:"status"`
	Pages        []PageDTO `json:"pages"`
	Meta         *MetaDTO  `json:"meta,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PageDTO is the JSON view of one page.
type PageDTO struct {
	PageNumber  int        `json:"pageNumber"`
	Text        string     `json:"text"`
	Confidence  float64    `json:"confidence"`
	Status      string     `json:"status"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
	WordCount   int        `json:"wordCount"`
	CharCount   int        `json:"charCount"`
	Thumbnail   string     `json:"thumbnail"`
}

// MetaDTO is the JSON view of a run summary.
type MetaDTO struct {
	TotalPages        int       `json:"totalPages"`
	SuccessfulPages   int       `json:"successfulPages"`
	FailedPages       int       `json:"failedPages"`
	AverageConfidence float64   `json:"averageConfidence"`
	CompletedAt       time.Time `json:"completedAt"`
}

// NewDocumentDTO converts a document, attaching thumbnail URLs to its pages.
func NewDocumentDTO(doc *domain.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:           doc.ID,
		Title:        doc.DisplayTitle(),
		OriginalName: doc.OriginalFilename,
		Filename:     doc.StoredFilename,
		Hash:         doc.ContentHash,
		Mime:         doc.MimeType,
		Size:         doc.Size,
		OCRLanguage:  doc.Language,
		Status:       string(doc.Status),
		Pages:        make([]PageDTO, 0, len(doc.Pages)),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	for _, p := range doc.Pages {
		dto.Pages = append(dto.Pages, PageDTO{
			PageNumber:  p.PageNumber,
			Text:        p.Text,
			Confidence:  p.Confidence,
			Status:      string(p.Status),
			ProcessedAt: p.ProcessedAt,
			Attempts:    p.Attempts,
			Error:       p.Error,
			WordCount:   p.WordCount,
			CharCount:   p.CharCount,
			Thumbnail:   domain.ThumbnailURL(doc.ContentHash, p.PageNumber),
		})
	}
	if m := doc.Meta; m != nil {
		dto.Meta = &MetaDTO{
			TotalPages:        m.TotalPages,
			SuccessfulPages:   m.SuccessfulPages,
			FailedPages:       m.FailedPages,
			AverageConfidence: m.AverageConfidence,
			CompletedAt:       m.CompletedAt,
		}
	}
	return dto
}

type uploadResponse struct {
	OK       bool   `json:"ok"`
	DocID    string `json:"docId"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Language string `json:"ocrLanguage"`
}

type statsResponse struct {
	OK    bool         `json:"ok"`
	Stats domain.Stats `json:"stats"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	version := s.cfg.Version
	if version == "" {
		version = "dev"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "OCR Backend API",
		"version": version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"time":    s.now().UnixMilli(),
		"message": "Backend server is running",
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", err.Error())
		case errors.Is(err, http.ErrMissingFile):
			writeError(w, http.StatusBadRequest, "No file provided", "")
		default:
			writeError(w, http.StatusBadRequest, "Invalid upload", err.Error())
		}
		return
	}
	defer file.Close()

	doc, err := s.ports.Documents.Upload(r.Context(), driving.UploadRequest{
		Filename: header.Filename,
		Title:    r.FormValue("title"),
		Language: r.FormValue("language"),
		MimeType: header.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		s.writeServiceError(w, "Upload failed", err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		OK:       true,
		DocID:    doc.ID,
		Title:    doc.DisplayTitle(),
		Filename: doc.StoredFilename,
		Status:   string(doc.Status),
		Language: doc.Language,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	offset := queryInt(r, "offset", 0)
	if limit < 1 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := s.ports.Documents.List(r.Context(), limit, offset)
	if err != nil {
		s.writeServiceError(w, "Failed to list documents", err)
		return
	}

	out := make([]DocumentDTO, 0, len(docs))
	for i := range docs {
		out = append(out, NewDocumentDTO(&docs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.ports.Documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, "not found", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc": NewDocumentDTO(doc)})
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	content, err := s.ports.Documents.GetContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, "not found", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		var body struct {
			Language string `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		language = body.Language
	}

	if _, err := s.ports.Documents.Reprocess(r.Context(), chi.URLParam(r, "docId"), language); err != nil {
		s.writeServiceError(w, "Reprocess failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if domain.NormaliseQuery(q) == "" {
		writeJSON(w, http.StatusOK, map[string]any{"results": []domain.SearchResult{}})
		return
	}

	resp, err := s.ports.Search.Search(r.Context(), q, domain.SearchOptions{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	})
	if err != nil {
		s.writeServiceError(w, "Search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ports.Stats.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, "Failed to fetch stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{OK: true, Stats: stats})
}

func (s *Server) handleIncrementSearch(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ports.Stats.IncrementSearches(r.Context())
	if err != nil {
		s.writeServiceError(w, "Failed to increment search count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": stats.Searches})
}

func (s *Server) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("%s: %v", message, err)
	}
	writeError(w, status, message, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]any{
		"ok":      false,
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
