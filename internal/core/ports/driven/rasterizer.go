package driven

import "context"

// Rasterizer converts an uploaded file into ordered page images.
type Rasterizer interface {
	// Rasterize writes page images for sourcePath into outputDir and
	// returns their paths in page order. Images are returned unchanged as
	// a single page. A page that cannot be rendered is replaced by a blank
	// placeholder; only producing zero pages is an error.
	Rasterize(ctx context.Context, sourcePath, outputDir, mimeType string) ([]string, error)
}

// SourceValidator checks an upload before it is accepted.
type SourceValidator interface {
	// Validate returns the page count of a valid file.
	Validate(ctx context.Context, path, mimeType string) (int, error)
}
