package tesseract

import (
	"context"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
)

func TestSummarise(t *testing.T) {
	words, conf := summarise([]gosseract.BoundingBox{
		{Word: "Invoice", Confidence: 96},
		{Word: "  ", Confidence: 10},
		{Word: "total", Confidence: 84},
	})

	assert.Len(t, words, 2)
	assert.Equal(t, "Invoice", words[0].Text)
	assert.InDelta(t, 90.0, conf, 0.001)
}

func TestSummarise_Empty(t *testing.T) {
	words, conf := summarise(nil)
	assert.Nil(t, words)
	assert.Zero(t, conf)

	words, conf = summarise([]gosseract.BoundingBox{{Word: ""}})
	assert.Nil(t, words)
	assert.Zero(t, conf)
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Open(ctx, "eng")

	assert.ErrorIs(t, err, context.Canceled)
}
