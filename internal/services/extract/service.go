// -----------------------------------------------------------------------
// Text Extraction - Full text of non-paginated sources by file extension
// -----------------------------------------------------------------------

package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
)

type extractFunc func(path string) (string, error)

// Service dispatches on the source extension; unknown extensions are read as text
type Service struct {
	byExt  map[string]extractFunc
	logger arbor.ILogger
}

var _ interfaces.TextExtractor = (*Service)(nil)

// NewService creates an extraction service
func NewService(logger arbor.ILogger) *Service {
	s := &Service{logger: logger}
	s.byExt = map[string]extractFunc{
		".docx":     extractDOCX,
		".xlsx":     extractXLSX,
		".xlsm":     extractXLSX,
		".md":       extractMarkdown,
		".markdown": extractMarkdown,
		".html":     s.extractHTML,
		".htm":      s.extractHTML,
	}
	return s
}

// Extract returns the text content of the file at path
func (s *Service) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", &common.IOError{Op: "open source", Path: path, Missing: errors.Is(err, os.ErrNotExist), Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := s.byExt[ext]
	if !ok {
		fn = extractText
	}

	content, err := fn(path)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", filepath.Base(path), err)
	}

	s.logger.Debug().
		Str("path", path).
		Str("ext", ext).
		Int("length", len(content)).
		Msg("Text extracted")

	return content, nil
}
