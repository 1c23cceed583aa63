// Package tesseract adapts the Tesseract OCR library (through gosseract)
// to the driven.OCREngine port.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// Engine opens one gosseract client per session.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// NewEngine creates a Tesseract-backed engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

// Open creates a client configured for language. Tesseract language codes
// may be joined with '+', e.g. "eng+deu".
func (e *Engine) Open(ctx context.Context, language string) (driven.OCRSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if language == "" {
		language = domain.DefaultLanguage
	}

	c := e.clientFactory()
	if err := c.SetLanguage(strings.Split(language, "+")...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set language %q: %w", language, err)
	}
	return &session{client: c}, nil
}

type session struct {
	client *gosseract.Client
}

func (s *session) Recognise(ctx context.Context, img []byte) (driven.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return driven.OCRResult{}, err
	}
	if err := s.client.SetImageFromBytes(img); err != nil {
		return driven.OCRResult{}, fmt.Errorf("set image: %w", err)
	}

	text, err := s.client.Text()
	if err != nil {
		return driven.OCRResult{}, fmt.Errorf("recognize text: %w", err)
	}

	// Word boxes are optional; without them the caller counts words itself.
	boxes, err := s.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		boxes = nil
	}
	words, confidence := summarise(boxes)

	return driven.OCRResult{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		Words:      words,
	}, nil
}

func (s *session) Close() error {
	return s.client.Close()
}

// summarise converts word boxes and returns their mean confidence.
// Tesseract reports confidences on a 0-100 scale.
func summarise(boxes []gosseract.BoundingBox) ([]driven.OCRWord, float64) {
	if len(boxes) == 0 {
		return nil, 0
	}
	words := make([]driven.OCRWord, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		sum += b.Confidence
		words = append(words, driven.OCRWord{Text: b.Word, Confidence: b.Confidence})
	}
	if len(words) == 0 {
		return nil, 0
	}
	return words, sum / float64(len(words))
}
