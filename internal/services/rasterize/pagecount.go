package rasterize

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ternarybob/quire/internal/interfaces"
)

// PDFPageCounter reads page counts with pdfcpu
type PDFPageCounter struct{}

var _ interfaces.PageCounter = PDFPageCounter{}

// PageCount returns the number of pages of the PDF at path
func (PDFPageCounter) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	return pdfCtx.PageCount, nil
}
