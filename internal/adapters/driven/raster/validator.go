package raster

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
)

// Ensure Validator implements the interface.
var _ driven.SourceValidator = (*Validator)(nil)

// Validator rejects uploads that cannot be processed. PDFs are checked
// structurally with pdfcpu in relaxed mode; images must decode.
type Validator struct {
	conf *model.Configuration
}

// NewValidator creates a validator with pdfcpu's relaxed configuration.
func NewValidator() *Validator {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Validator{conf: conf}
}

// Validate returns the number of pages in the file.
func (v *Validator) Validate(_ context.Context, path, mimeType string) (int, error) {
	switch {
	case mimeType == "application/pdf":
		if err := api.ValidateFile(path, v.conf); err != nil {
			return 0, fmt.Errorf("invalid pdf: %w", err)
		}
		n, err := api.PageCountFile(path)
		if err != nil {
			return 0, fmt.Errorf("counting pages: %w", err)
		}
		if n == 0 {
			return 0, domain.ErrNoPages
		}
		return n, nil

	case strings.HasPrefix(mimeType, "image/"):
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		if _, _, err := image.DecodeConfig(f); err != nil {
			return 0, fmt.Errorf("invalid image: %w", err)
		}
		return 1, nil

	default:
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}
}
