package driven

import "context"

// ImageNormaliser prepares page images for recognition.
type ImageNormaliser interface {
	// Normalise applies the full clean-up pipeline and returns PNG bytes.
	Normalise(ctx context.Context, path string) ([]byte, error)

	// NormaliseMinimal only corrects orientation and converts to grayscale.
	NormaliseMinimal(ctx context.Context, path string) ([]byte, error)

	// Thumbnail writes a small PNG preview of src to dst.
	Thumbnail(ctx context.Context, src, dst string) error
}
