// Package imagenorm prepares scanned page images for OCR and renders
// page thumbnails.
package imagenorm

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.ImageNormaliser = (*Normaliser)(nil)

// Size limits. Images are only ever scaled down.
const (
	MaxWidth        = 2400
	MaxHeight       = 3200
	ThumbnailWidth  = 200
	ThumbnailHeight = 300
)

const (
	sharpenSigma = 1.0
	gamma        = 1.2
)

// Normaliser implements driven.ImageNormaliser with disintegration/imaging.
type Normaliser struct{}

// NewNormaliser creates a normaliser.
func NewNormaliser() *Normaliser {
	return &Normaliser{}
}

// Normalise orients, bounds, sharpens, stretches contrast, converts to
// grayscale and applies gamma, returning PNG bytes.
func (n *Normaliser) Normalise(ctx context.Context, path string) ([]byte, error) {
	img, err := open(ctx, path)
	if err != nil {
		return nil, err
	}

	img = imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)
	img = imaging.Sharpen(img, sharpenSigma)
	gray := stretch(imaging.Grayscale(img))
	return encode(imaging.AdjustGamma(gray, gamma))
}

// NormaliseMinimal only orients and converts to grayscale.
func (n *Normaliser) NormaliseMinimal(ctx context.Context, path string) ([]byte, error) {
	img, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	return encode(imaging.Grayscale(img))
}

// Thumbnail writes a PNG fitting inside ThumbnailWidth x ThumbnailHeight.
func (n *Normaliser) Thumbnail(ctx context.Context, src, dst string) error {
	img, err := open(ctx, src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	thumb := imaging.Fit(img, ThumbnailWidth, ThumbnailHeight, imaging.Lanczos)
	if err := imaging.Save(thumb, dst); err != nil {
		return fmt.Errorf("saving thumbnail: %w", err)
	}
	return nil
}

func open(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// stretch maps the darkest pixel to black and the lightest to white.
// The input is already grayscale so the red channel stands for luminance.
func stretch(img *image.NRGBA) *image.NRGBA {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		v := img.Pix[i]
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi <= lo {
		return img
	}
	scale := 255.0 / float64(hi-lo)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := uint8(float64(c.R-lo) * scale)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
