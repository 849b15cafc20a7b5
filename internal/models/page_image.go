package models

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Raster output formats and their file extensions
var rasterExtensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"jpg":  ".jpg",
	"tiff": ".tif",
	"ppm":  ".ppm",
}

// RasterExt maps a raster format name to the extension the rasterizers write
func RasterExt(format string) string {
	if ext, ok := rasterExtensions[strings.ToLower(format)]; ok {
		return ext
	}
	return "." + strings.ToLower(format)
}

// PageImage identifies one rasterized page in the temp directory
type PageImage struct {
	Stem string
	DPI  int
	Page int
	Ext  string
}

// SourceStem returns the cache stem of a source file: its base name without extension
func SourceStem(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PageImagePrefix is the stem-dpi prefix handed to the rasterizer
func PageImagePrefix(stem string, dpi int) string {
	return fmt.Sprintf("%s-%d", stem, dpi)
}

// FileName encodes the image as stem-dpi-page.ext
func (p PageImage) FileName() string {
	return fmt.Sprintf("%s-%d%s", PageImagePrefix(p.Stem, p.DPI), p.Page, p.Ext)
}

// ParsePageImageName decodes stem-dpi-page.ext. The stem may itself contain dashes;
// dpi and page are taken from the right. Zero-padded page numbers are accepted.
func ParsePageImageName(name string) (PageImage, bool) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	parts := strings.Split(strings.TrimSuffix(base, ext), "-")
	if len(parts) < 3 || ext == "" {
		return PageImage{}, false
	}
	n := len(parts)
	dpi, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return PageImage{}, false
	}
	page, err := strconv.Atoi(parts[n-1])
	if err != nil || page < 1 {
		return PageImage{}, false
	}
	stem := strings.Join(parts[:n-2], "-")
	if stem == "" {
		return PageImage{}, false
	}
	return PageImage{Stem: stem, DPI: dpi, Page: page, Ext: strings.ToLower(ext)}, true
}

// IsPaginatedSource reports whether a source is rasterized page by page
func IsPaginatedSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
