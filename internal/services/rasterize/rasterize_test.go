package rasterize

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
)

// recordingRunner creates the files poppler would write (zero-padded page numbers)
type recordingRunner struct {
	name  string
	args  []string
	pages []string
	fail  bool
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.name = name
	r.args = args
	if r.fail {
		return []byte("Syntax Error: Couldn't read xref table"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	for _, p := range r.pages {
		if err := os.WriteFile(prefix+"-"+p+".jpg", nil, 0644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestPopplerRasterizer_Args(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{pages: []string{"03", "04", "05"}}

	p, err := NewPopplerRasterizer(EnginePdftocairo, "/opt/poppler/bin", arbor.NewLogger())
	require.NoError(t, err)
	p.WithRunner(runner)

	paths, err := p.Rasterize(context.Background(), interfaces.RasterRequest{
		SourcePath: "/docs/my-book.pdf",
		DPI:        300,
		Format:     "jpeg",
		FirstPage:  3,
		LastPage:   4,
		OutputDir:  dir,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/opt/poppler/bin", "pdftocairo"), runner.name)
	assert.Equal(t, []string{"-r", "300", "-f", "3", "-l", "4", "-jpeg", "/docs/my-book.pdf", filepath.Join(dir, "my-book-300")}, runner.args)
	assert.Equal(t, []string{filepath.Join(dir, "my-book-300-03.jpg"), filepath.Join(dir, "my-book-300-04.jpg")}, paths)
}

func TestPopplerRasterizer_Errors(t *testing.T) {
	p, err := NewPopplerRasterizer(EnginePdftocairo, "", arbor.NewLogger())
	require.NoError(t, err)

	_, err = p.Rasterize(context.Background(), interfaces.RasterRequest{Format: "ppm", FirstPage: 1, LastPage: 1})
	assert.Error(t, err)

	p.WithRunner(&recordingRunner{fail: true})
	_, err = p.Rasterize(context.Background(), interfaces.RasterRequest{SourcePath: "x.pdf", Format: "png", DPI: 300, FirstPage: 1, LastPage: 1, OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xref")

	_, err = NewPopplerRasterizer("gs", "", arbor.NewLogger())
	assert.Error(t, err)
}

func TestPdftoppm_PPMHasNoFormatFlag(t *testing.T) {
	runner := &recordingRunner{}
	p, err := NewPopplerRasterizer(EnginePdftoppm, "", arbor.NewLogger())
	require.NoError(t, err)
	p.WithRunner(runner)

	_, err = p.Rasterize(context.Background(), interfaces.RasterRequest{SourcePath: "a.pdf", Format: "ppm", DPI: 150, FirstPage: 1, LastPage: 2, OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "pdftoppm", runner.name)
	assert.NotContains(t, runner.args, "-png")
	assert.Len(t, runner.args, 8)
}

func TestNew(t *testing.T) {
	for _, engine := range []string{EnginePdftocairo, EnginePdftoppm, EngineEmbedded} {
		r, err := New(common.RasterConfig{Engine: engine}, arbor.NewLogger())
		require.NoError(t, err)
		assert.Equal(t, engine, r.Name())
	}
	_, err := New(common.RasterConfig{Engine: "mutool"}, arbor.NewLogger())
	assert.Error(t, err)
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())
}

// scannedPDF builds a PDF whose pages each carry one full-page image of a distinct size
func scannedPDF(t *testing.T, dir string, sizes [][2]int) string {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	for i, s := range sizes {
		img := filepath.Join(dir, "scan"+string(rune('a'+i))+".jpg")
		writeJPEG(t, img, s[0], s[1])
		pdf.AddPage()
		pdf.ImageOptions(img, 0, 0, 210, 297, false, fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	}
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func TestPDFPageCounter(t *testing.T) {
	dir := t.TempDir()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < 3; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, "page")
	}
	path := filepath.Join(dir, "three.pdf")
	require.NoError(t, pdf.OutputFileAndClose(path))

	n, err := PDFPageCounter{}.PageCount(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = PDFPageCounter{}.PageCount(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestEmbeddedRasterizer(t *testing.T) {
	dir := t.TempDir()
	src := scannedPDF(t, dir, [][2]int{{120, 160}, {90, 60}, {40, 40}})
	out := filepath.Join(dir, "temp")
	require.NoError(t, os.MkdirAll(out, 0755))

	r := NewEmbeddedRasterizer(arbor.NewLogger())
	paths, err := r.Rasterize(context.Background(), interfaces.RasterRequest{
		SourcePath: src,
		DPI:        300,
		Format:     "png",
		FirstPage:  1,
		LastPage:   2,
		OutputDir:  out,
	})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "scan-300-1.png"), filepath.Join(out, "scan-300-2.png")}, paths)

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 90, cfg.Width)
	assert.Equal(t, 60, cfg.Height)
}

func TestWriteImage_PPM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.ppm")
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	require.NoError(t, WriteImage(path, img, "ppm"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "P6\n3 2\n255\n", string(data[:11]))
	assert.Len(t, data, 11+3*2*3)

	assert.Error(t, WriteImage(filepath.Join(t.TempDir(), "x.bmp"), img, "bmp"))
}

func TestLoadImage_PPMRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.ppm")
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 2, color.RGBA{200, 100, 50, 255})
	require.NoError(t, WriteImage(path, src, "ppm"))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
	r, g, b, _ := img.At(1, 2).RGBA()
	assert.Equal(t, []uint32{200, 100, 50}, []uint32{r >> 8, g >> 8, b >> 8})
}
