package domain

import "encoding/json"

// ProgressKind tags a ProgressEvent.
type ProgressKind string

// Progress event kinds, in the order a run emits them.
const (
	ProgressProcessing   ProgressKind = "processing"
	ProgressConverting   ProgressKind = "converting"
	ProgressStartingOCR  ProgressKind = "starting_ocr"
	ProgressPageStep     ProgressKind = "page_step"
	ProgressPageComplete ProgressKind = "page_complete"
	ProgressPageFailed   ProgressKind = "page_failed"
	ProgressDone         ProgressKind = "done"
	ProgressFailed       ProgressKind = "failed"
)

// PageStep names a sub-step of recognising one page.
type PageStep string

// Page sub-steps.
const (
	StepLoadingModel  PageStep = "loading-model"
	StepPreprocessing PageStep = "preprocessing"
	StepRecognizing   PageStep = "recognizing"
	StepCleanup       PageStep = "cleanup"
)

// ProgressEvent is a structured update about one document's run.
// Which optional fields are set depends on Kind; use the constructors
// below rather than building events by hand.
type ProgressEvent struct {
	Kind       ProgressKind
	DocumentID string

	Page        int
	Step        PageStep
	Attempt     int
	MaxAttempts int

	CurrentPage int
	TotalPages  int
	Confidence  float64

	SuccessfulPages   int
	FailedPages       int
	AverageConfidence float64
	ProgressFraction  float64

	Error string
}

// IsTerminal returns true for the last event of a run.
func (e ProgressEvent) IsTerminal() bool {
	return e.Kind == ProgressDone || e.Kind == ProgressFailed
}

// Status returns the wire status. Page sub-steps are reported as
// "processing" with Step set.
func (e ProgressEvent) Status() string {
	if e.Kind == ProgressPageStep {
		return string(ProgressProcessing)
	}
	return string(e.Kind)
}

// NewProcessingEvent marks the start of a run.
func NewProcessingEvent(docID string) ProgressEvent {
	return ProgressEvent{Kind: ProgressProcessing, DocumentID: docID}
}

// NewConvertingEvent is emitted before rasterisation.
func NewConvertingEvent(docID string) ProgressEvent {
	return ProgressEvent{Kind: ProgressConverting, DocumentID: docID}
}

// NewStartingOCREvent is emitted once per attempt at a page.
func NewStartingOCREvent(docID string, page, total, attempt, maxAttempts int) ProgressEvent {
	return ProgressEvent{
		Kind:        ProgressStartingOCR,
		DocumentID:  docID,
		Page:        page,
		CurrentPage: page,
		TotalPages:  total,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
	}
}

// NewPageStepEvent reports a sub-step inside one page attempt.
func NewPageStepEvent(docID string, page int, step PageStep) ProgressEvent {
	return ProgressEvent{Kind: ProgressPageStep, DocumentID: docID, Page: page, Step: step}
}

// NewPageCompleteEvent reports a recognised page with running aggregates.
func NewPageCompleteEvent(docID string, page, total int, confidence float64, successful, failed int, avg float64) ProgressEvent {
	return ProgressEvent{
		Kind:              ProgressPageComplete,
		DocumentID:        docID,
		Page:              page,
		CurrentPage:       page,
		TotalPages:        total,
		Confidence:        confidence,
		SuccessfulPages:   successful,
		FailedPages:       failed,
		AverageConfidence: avg,
		ProgressFraction:  fraction(page, total),
	}
}

// NewPageFailedEvent reports a page that exhausted its attempts.
func NewPageFailedEvent(docID string, page, total int, errMsg string, successful, failed, attempt, maxAttempts int) ProgressEvent {
	return ProgressEvent{
		Kind:             ProgressPageFailed,
		DocumentID:       docID,
		Page:             page,
		CurrentPage:      page,
		TotalPages:       total,
		Error:            errMsg,
		SuccessfulPages:  successful,
		FailedPages:      failed,
		Attempt:          attempt,
		MaxAttempts:      maxAttempts,
		ProgressFraction: fraction(page, total),
	}
}

// NewDoneEvent is the terminal event of a successful run.
func NewDoneEvent(docID string, total, successful int) ProgressEvent {
	return ProgressEvent{
		Kind:             ProgressDone,
		DocumentID:       docID,
		TotalPages:       total,
		SuccessfulPages:  successful,
		ProgressFraction: 1,
	}
}

// NewFailedEvent is the terminal event of a failed run.
func NewFailedEvent(docID, errMsg string) ProgressEvent {
	return ProgressEvent{Kind: ProgressFailed, DocumentID: docID, Error: errMsg}
}

func fraction(page, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(page) / float64(total)
}

type progressWire struct {
	Status            string   `json:"status"`
	DocID             string   `json:"docId,omitempty"`
	Page              int      `json:"page,omitempty"`
	Step              PageStep `json:"step,omitempty"`
	Attempt           int      `json:"attempt,omitempty"`
	MaxRetries        int      `json:"maxRetries,omitempty"`
	CurrentPage       int      `json:"currentPage,omitempty"`
	TotalPages        int      `json:"totalPages,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	SuccessfulPages   *int     `json:"successfulPages,omitempty"`
	FailedPages       *int     `json:"failedPages,omitempty"`
	AverageConfidence *float64 `json:"averageConfidence,omitempty"`
	ProgressFraction  float64  `json:"progressFraction,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// MarshalJSON renders the event in the browser wire format.
func (e ProgressEvent) MarshalJSON() ([]byte, error) {
	w := progressWire{
		Status:           e.Status(),
		DocID:            e.DocumentID,
		Page:             e.Page,
		Step:             e.Step,
		Attempt:          e.Attempt,
		MaxRetries:       e.MaxAttempts,
		CurrentPage:      e.CurrentPage,
		TotalPages:       e.TotalPages,
		ProgressFraction: e.ProgressFraction,
		Error:            e.Error,
	}
	switch e.Kind {
	case ProgressPageComplete:
		w.Confidence = &e.Confidence
		w.AverageConfidence = &e.AverageConfidence
		w.SuccessfulPages = &e.SuccessfulPages
		w.FailedPages = &e.FailedPages
	case ProgressPageFailed:
		w.SuccessfulPages = &e.SuccessfulPages
		w.FailedPages = &e.FailedPages
	case ProgressDone:
		w.SuccessfulPages = &e.SuccessfulPages
	}
	return json.Marshal(w)
}
