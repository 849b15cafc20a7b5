// -----------------------------------------------------------------------
// Embedded Rasterizer - Pull the scanned page image out of each PDF page
// Uses pdfcpu; no rendering, so only image-only (scanned) PDFs are supported
// -----------------------------------------------------------------------

package rasterize

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
)

// EmbeddedRasterizer writes the largest embedded image of every page as the page image
type EmbeddedRasterizer struct {
	logger arbor.ILogger
}

var _ interfaces.Rasterizer = (*EmbeddedRasterizer)(nil)

// NewEmbeddedRasterizer creates an embedded image rasterizer
func NewEmbeddedRasterizer(logger arbor.ILogger) *EmbeddedRasterizer {
	return &EmbeddedRasterizer{logger: logger}
}

func (e *EmbeddedRasterizer) Name() string { return EngineEmbedded }

// Rasterize extracts page images for req.FirstPage..req.LastPage. DPI only names the
// output; the images keep the resolution they were scanned at.
func (e *EmbeddedRasterizer) Rasterize(ctx context.Context, req interfaces.RasterRequest) ([]string, error) {
	f, err := os.Open(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", req.SourcePath, err)
	}
	defer f.Close()

	var mu sync.Mutex
	largest := make(map[int]image.Image)

	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		decoded, _, err := image.Decode(img)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Int("page", img.PageNr).
				Str("type", img.FileType).
				Msg("Skipping undecodable embedded image")
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		if cur, ok := largest[img.PageNr]; !ok || area(decoded) > area(cur) {
			largest[img.PageNr] = decoded
		}
		return nil
	}

	pages := []string{fmt.Sprintf("%d-%d", req.FirstPage, req.LastPage)}
	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImages(f, pages, digest, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	stem := models.SourceStem(req.SourcePath)
	ext := models.RasterExt(req.Format)
	var paths []string
	for p := req.FirstPage; p <= req.LastPage; p++ {
		img, ok := largest[p]
		if !ok {
			e.logger.Warn().Str("source", req.SourcePath).Int("page", p).Msg("Page has no embedded image")
			continue
		}
		name := models.PageImage{Stem: stem, DPI: req.DPI, Page: p, Ext: ext}.FileName()
		path := filepath.Join(req.OutputDir, name)
		if err := WriteImage(path, img, req.Format); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}
