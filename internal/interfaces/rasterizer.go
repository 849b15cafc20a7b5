// -----------------------------------------------------------------------
// Rasterizer Interface - Render page ranges of paginated sources to images
// -----------------------------------------------------------------------

package interfaces

import "context"

// RasterRequest describes one contiguous page range to render
type RasterRequest struct {
	SourcePath string
	DPI        int
	Format     string // png, jpeg, tiff, ppm
	FirstPage  int
	LastPage   int
	OutputDir  string
}

// Rasterizer renders a page range of a source document into OutputDir, naming each
// image stem-dpi-page.ext, and returns the image paths it produced.
// Implementations are blocking and are invoked once per missing range.
type Rasterizer interface {
	Name() string
	Rasterize(ctx context.Context, req RasterRequest) ([]string, error)
}

// PageCounter reports the number of pages of a paginated source
type PageCounter interface {
	PageCount(ctx context.Context, sourcePath string) (int, error)
}
