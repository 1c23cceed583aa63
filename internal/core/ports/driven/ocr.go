package driven

import "context"

// OCREngine opens recognition sessions.
type OCREngine interface {
	// Open loads the model for the given language.
	// The returned session must be closed by the caller.
	Open(ctx context.Context, language string) (OCRSession, error)
}

// OCRSession recognises images with a loaded language model.
type OCRSession interface {
	// Recognise extracts text from encoded image bytes.
	Recognise(ctx context.Context, image []byte) (OCRResult, error)

	// Close releases the model and any native resources.
	Close() error
}

// OCRResult is the output of one recognition call.
type OCRResult struct {
	// Text is the recognised text.
	Text string

	// Confidence is the mean word confidence, 0-100.
	Confidence float64

	// Words holds word-level results when the engine reports them.
	Words []OCRWord
}

// OCRWord is a single recognised word.
type OCRWord struct {
	Text       string
	Confidence float64
}
