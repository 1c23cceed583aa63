package domain

import (
	"strings"
	"unicode"
)

// Snippet window around the first match, in runes.
const (
	SnippetBefore = 60
	SnippetAfter  = 200
)

// MaxSearchLimit caps the page size of batch search.
const MaxSearchLimit = 50

// NormaliseQuery trims and case-folds a free-text query.
// Folding is per rune so offsets in folded text match the original.
func NormaliseQuery(q string) string {
	return strings.Map(unicode.ToLower, strings.TrimSpace(q))
}

// IndexFold returns the rune offset of the first case-insensitive
// occurrence of the normalised query in text, or -1.
func IndexFold(text, query string) int {
	if query == "" {
		return -1
	}
	t := []rune(strings.Map(unicode.ToLower, text))
	q := []rune(query)
	for i := 0; i+len(q) <= len(t); i++ {
		match := true
		for j := range q {
			if t[i+j] != q[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// ContainsFold reports whether text contains the normalised query.
func ContainsFold(text, query string) bool {
	return IndexFold(text, query) >= 0
}

// BuildSnippet extracts a preview of text around the first occurrence of
// query. It returns the snippet and the rune offset of the match, or the
// first SnippetAfter runes and -1 when the query does not occur in text.
func BuildSnippet(text, query string) (string, int) {
	runes := []rune(text)
	idx := IndexFold(text, query)
	if idx < 0 {
		if len(runes) > SnippetAfter {
			return string(runes[:SnippetAfter]), -1
		}
		return text, -1
	}

	start := max(0, idx-SnippetBefore)
	end := min(len(runes), idx+len([]rune(query))+SnippetAfter)

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String(), idx
}

// MatchedPage is one page that matched a query.
type MatchedPage struct {
	PageNumber int     `json:"pageNumber"`
	Confidence float64 `json:"confidence"`
	Snippet    string  `json:"snippet"`
	MatchIndex int     `json:"matchIndex"`
	Thumbnail  string  `json:"thumbnail"`
}

// LiveMatch is pushed to live search subscribers when a completed page
// matches their query.
type LiveMatch struct {
	DocumentID string      `json:"_id"`
	Title      string      `json:"title"`
	Filename   string      `json:"filename"`
	Page       MatchedPage `json:"page"`
}

// SearchResult is one document returned by batch search.
type SearchResult struct {
	DocumentID string        `json:"_id"`
	Title      string        `json:"title"`
	Filename   string        `json:"filename"`
	TotalPages int           `json:"totalPages"`
	Pages      []MatchedPage `json:"pages"`
}

// SearchOptions configures a batch search query.
type SearchOptions struct {
	// Page is the 1-based result page.
	Page int

	// Limit is the maximum number of documents, capped at MaxSearchLimit.
	Limit int
}

// Normalise applies defaults and caps.
func (o SearchOptions) Normalise() SearchOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.Limit > MaxSearchLimit {
		o.Limit = MaxSearchLimit
	}
	return o
}

// Offset returns the number of documents to skip.
func (o SearchOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// SearchResponse is a page of batch search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}
