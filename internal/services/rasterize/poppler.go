// -----------------------------------------------------------------------
// Poppler Rasterizer - Render PDF page ranges with pdftocairo / pdftoppm
// -----------------------------------------------------------------------

package rasterize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
)

const (
	EnginePdftocairo = "pdftocairo"
	EnginePdftoppm   = "pdftoppm"
	EngineEmbedded   = "embedded"
)

// output format flags per poppler tool; pdftoppm writes ppm when no flag is given
var popplerFormats = map[string]map[string]string{
	EnginePdftocairo: {"png": "-png", "jpeg": "-jpeg", "tiff": "-tiff"},
	EnginePdftoppm:   {"png": "-png", "jpeg": "-jpeg", "tiff": "-tiff", "ppm": ""},
}

// PopplerRasterizer shells out to a poppler command line tool
type PopplerRasterizer struct {
	tool   string
	binary string
	runner Runner
	logger arbor.ILogger
}

var _ interfaces.Rasterizer = (*PopplerRasterizer)(nil)

// NewPopplerRasterizer creates a rasterizer for tool (pdftocairo or pdftoppm).
// binDir, when set, is the directory holding the poppler binaries.
func NewPopplerRasterizer(tool, binDir string, logger arbor.ILogger) (*PopplerRasterizer, error) {
	if _, ok := popplerFormats[tool]; !ok {
		return nil, fmt.Errorf("unknown poppler tool %q", tool)
	}
	binary := tool
	if binDir != "" {
		binary = filepath.Join(binDir, tool)
	}
	return &PopplerRasterizer{tool: tool, binary: binary, runner: execRunner{}, logger: logger}, nil
}

// WithRunner replaces the process runner, for tests
func (p *PopplerRasterizer) WithRunner(r Runner) *PopplerRasterizer {
	p.runner = r
	return p
}

func (p *PopplerRasterizer) Name() string { return p.tool }

// Rasterize renders req.FirstPage..req.LastPage into req.OutputDir
func (p *PopplerRasterizer) Rasterize(ctx context.Context, req interfaces.RasterRequest) ([]string, error) {
	flag, ok := popplerFormats[p.tool][strings.ToLower(req.Format)]
	if !ok {
		return nil, fmt.Errorf("%s cannot write %q images", p.tool, req.Format)
	}

	stem := models.SourceStem(req.SourcePath)
	prefix := filepath.Join(req.OutputDir, models.PageImagePrefix(stem, req.DPI))

	args := []string{
		"-r", strconv.Itoa(req.DPI),
		"-f", strconv.Itoa(req.FirstPage),
		"-l", strconv.Itoa(req.LastPage),
	}
	if flag != "" {
		args = append(args, flag)
	}
	args = append(args, req.SourcePath, prefix)

	p.logger.Debug().Str("binary", p.binary).Strs("args", args).Msg("Running rasterizer")

	if out, err := p.runner.Run(ctx, p.binary, args...); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", p.binary, err, strings.TrimSpace(string(out)))
	}

	return collectPages(req.OutputDir, stem, req.DPI, models.RasterExt(req.Format), req.FirstPage, req.LastPage)
}

// collectPages lists the images of stem/dpi/ext in dir whose page lies in [first, last]
func collectPages(dir, stem string, dpi int, ext string, first, last int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		img, ok := models.ParsePageImageName(e.Name())
		if !ok || img.Stem != stem || img.DPI != dpi || img.Ext != ext {
			continue
		}
		if img.Page < first || img.Page > last {
			continue
		}
		pages = append(pages, page{n: img.Page, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].n < pages[j].n })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}
