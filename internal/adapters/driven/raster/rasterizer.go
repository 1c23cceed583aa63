// Package raster turns uploads into page images. PDFs are rendered with
// MuPDF through go-fitz; images pass through untouched.
package raster

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/logger"
)

// Ensure Rasterizer implements the interface.
var _ driven.Rasterizer = (*Rasterizer)(nil)

// Placeholder dimensions for pages that fail to render.
const (
	PlaceholderWidth  = 2400
	PlaceholderHeight = 3200
)

// DefaultDPI is the render resolution for PDF pages.
const DefaultDPI = 300

// Rasterizer renders PDF pages to PNG files.
type Rasterizer struct {
	dpi float64
	log logger.Logger
}

// NewRasterizer creates a rasterizer rendering at dpi. Non-positive values
// use DefaultDPI.
func NewRasterizer(dpi int) *Rasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{dpi: float64(dpi), log: logger.With("raster")}
}

// Rasterize returns one image path per page, in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, sourcePath, outputDir, mimeType string) ([]string, error) {
	switch {
	case mimeType == "application/pdf":
		return r.renderPDF(ctx, sourcePath, outputDir)
	case strings.HasPrefix(mimeType, "image/"):
		return []string{sourcePath}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
}

func (r *Rasterizer) renderPDF(ctx context.Context, sourcePath, outputDir string) ([]string, error) {
	doc, err := fitz.New(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer doc.Close()

	count := doc.NumPage()
	if count == 0 {
		return nil, domain.ErrNoPages
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating page directory: %w", err)
	}

	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := filepath.Join(outputDir, "page-"+strconv.Itoa(i+1)+".png")
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			r.log.Warn("page %d failed to render, using blank placeholder: %v", i+1, err)
			if err := WritePlaceholder(out); err != nil {
				return nil, err
			}
			paths = append(paths, out)
			continue
		}

		if err := imaging.Save(img, out); err != nil {
			return nil, fmt.Errorf("writing page %d: %w", i+1, err)
		}
		paths = append(paths, out)
	}

	return paths, nil
}

// WritePlaceholder writes a blank white page image to path.
func WritePlaceholder(path string) error {
	blank := imaging.New(PlaceholderWidth, PlaceholderHeight, color.White)
	if err := imaging.Save(blank, path); err != nil {
		return fmt.Errorf("writing placeholder: %w", err)
	}
	return nil
}
