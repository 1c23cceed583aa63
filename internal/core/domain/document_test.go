package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStatus_IsValid(t *testing.T) {
	for _, s := range []DocumentStatus{DocumentQueued, DocumentProcessing, DocumentDone, DocumentFailed} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, DocumentStatus("archived").IsValid())
}

func TestDocument_DisplayTitle(t *testing.T) {
	assert.Equal(t, "Invoice", (&Document{Title: "Invoice", OriginalFilename: "a.pdf"}).DisplayTitle())
	assert.Equal(t, "a.pdf", (&Document{OriginalFilename: "a.pdf"}).DisplayTitle())
	assert.Equal(t, "Document", (&Document{}).DisplayTitle())
}

func TestDocument_Extension(t *testing.T) {
	assert.Equal(t, ".pdf", (&Document{StoredFilename: "abc.PDF"}).Extension())
	assert.Equal(t, ".png", (&Document{OriginalFilename: "scan.png"}).Extension())
	assert.Equal(t, ".jpg", (&Document{StoredFilename: "abc"}).Extension())
}

func TestDocument_InitPages(t *testing.T) {
	doc := &Document{}
	doc.InitPages(3)

	require.Len(t, doc.Pages, 3)
	for i, p := range doc.Pages {
		assert.Equal(t, i+1, p.PageNumber)
		assert.Equal(t, PagePending, p.Status)
	}
	assert.Nil(t, doc.Page(0))
	assert.Nil(t, doc.Page(4))
	assert.Equal(t, 2, doc.Page(2).PageNumber)
}

func TestDocument_ResetPages(t *testing.T) {
	doc := &Document{
		Pages: []Page{
			{PageNumber: 1, Status: PageDone, Text: "old", Confidence: 90, Attempts: 1},
			{PageNumber: 2, Status: PageFailed, Error: "x", Attempts: 2},
		},
		Meta: &DocumentMeta{TotalPages: 2},
	}

	doc.ResetPages()

	assert.Equal(t, []Page{
		{PageNumber: 1, Status: PagePending},
		{PageNumber: 2, Status: PagePending},
	}, doc.Pages)
	assert.Nil(t, doc.Meta)
}

func TestDocument_ResetPagesEmpty(t *testing.T) {
	doc := &Document{}

	doc.ResetPages()

	assert.Empty(t, doc.Pages)
}

func TestDocument_PageTotals(t *testing.T) {
	doc := &Document{Pages: []Page{
		{PageNumber: 1, Status: PageDone, Confidence: 80},
		{PageNumber: 2, Status: PageFailed},
		{PageNumber: 3, Status: PageDone, Confidence: 90},
		{PageNumber: 4, Status: PagePending},
	}}

	done, failed, avg := doc.PageTotals()

	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
	assert.InDelta(t, 85.0, avg, 0.0001)
}

func TestDocument_PageTotals_NoneDone(t *testing.T) {
	doc := &Document{Pages: []Page{{PageNumber: 1, Status: PageFailed}}}

	done, failed, avg := doc.PageTotals()

	assert.Equal(t, 0, done)
	assert.Equal(t, 1, failed)
	assert.Zero(t, avg)
}

func TestThumbnailURL(t *testing.T) {
	assert.Equal(t, "abc-page-2.png", ThumbnailName("abc", 2))
	assert.Equal(t, "/uploads/abc-page-2.png", ThumbnailURL("abc", 2))
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{42.5, 42.5},
		{-3, 0},
		{150, 100},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampConfidence(tt.in))
	}
}
