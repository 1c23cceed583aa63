package domain

import (
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultLanguage is the OCR language used when none is given.
const DefaultLanguage = "eng"

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

// Document lifecycle states.
const (
	DocumentQueued     DocumentStatus = "queued"
	DocumentProcessing DocumentStatus = "processing"
	DocumentDone       DocumentStatus = "done"
	DocumentFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentQueued, DocumentProcessing, DocumentDone, DocumentFailed:
		return true
	default:
		return false
	}
}

// PageStatus is the processing state of a single page.
type PageStatus string

// Page states.
const (
	PagePending    PageStatus = "pending"
	PageProcessing PageStatus = "processing"
	PageDone       PageStatus = "done"
	PageFailed     PageStatus = "failed"
)

// Document is an uploaded scan together with its OCR results.
type Document struct {
	// ID is the unique identifier, assigned at creation and never changed.
	ID string

	// Title is the display title. Empty titles fall back to the filename.
	Title string

	// OriginalFilename is the name the file was uploaded with.
	OriginalFilename string

	// StoredFilename is the name of the stored copy in the upload directory.
	StoredFilename string

	// ContentHash is the hex sha256 of the uploaded bytes.
	ContentHash string

	// MimeType is the detected content type of the upload.
	MimeType string

	// Size is the upload size in bytes.
	Size int64

	// Language is the OCR language code. Only changed by reprocessing.
	Language string

	// Status is the document lifecycle state.
	Status DocumentStatus

	// Pages holds per-page results; Pages[i].PageNumber == i+1.
	Pages []Page

	// Meta is the run summary, set once a run has processed every page.
	Meta *DocumentMeta

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is refreshed on every mutating write.
	UpdatedAt time.Time
}

// Page is the OCR result for one page of a document.
type Page struct {
	PageNumber  int
	Text        string
	Confidence  float64
	Status      PageStatus
	ProcessedAt *time.Time
	Attempts    int
	Error       string
	WordCount   int
	CharCount   int
}

// DocumentMeta summarises a completed run.
type DocumentMeta struct {
	TotalPages        int
	SuccessfulPages   int
	FailedPages       int
	AverageConfidence float64
	CompletedAt       time.Time
}

// DisplayTitle returns the title, falling back to the original filename
// and then to "Document".
func (d *Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.OriginalFilename != "" {
		return d.OriginalFilename
	}
	return "Document"
}

// Extension returns the lower-cased extension of the stored file,
// defaulting to ".jpg" when the stored name has none.
func (d *Document) Extension() string {
	name := d.StoredFilename
	if name == "" {
		name = d.OriginalFilename
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ".jpg"
	}
	return ext
}

// ResetPages returns every page to pending, keeping the page count, and
// drops the run summary.
func (d *Document) ResetPages() {
	d.InitPages(len(d.Pages))
	d.Meta = nil
}

// InitPages replaces the page list with n pending pages.
func (d *Document) InitPages(n int) {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{PageNumber: i + 1, Status: PagePending}
	}
	d.Pages = pages
}

// Page returns a pointer to page n (1-based), or nil when out of range.
func (d *Document) Page(n int) *Page {
	if n < 1 || n > len(d.Pages) {
		return nil
	}
	return &d.Pages[n-1]
}

// PageTotals returns the number of done and failed pages and the mean
// confidence over done pages.
func (d *Document) PageTotals() (done, failed int, avg float64) {
	var sum float64
	for _, p := range d.Pages {
		switch p.Status {
		case PageDone:
			done++
			sum += p.Confidence
		case PageFailed:
			failed++
		}
	}
	if done > 0 {
		avg = sum / float64(done)
	}
	return done, failed, avg
}

// ThumbnailName returns the file name of the thumbnail for a page.
func ThumbnailName(hash string, pageNumber int) string {
	return hash + "-page-" + strconv.Itoa(pageNumber) + ".png"
}

// ThumbnailURL returns the public path of the thumbnail for a page.
func ThumbnailURL(hash string, pageNumber int) string {
	return "/uploads/" + ThumbnailName(hash, pageNumber)
}

// ClampConfidence maps an engine-reported score into [0,100].
// NaN, infinities and negative values become 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
