package article

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
)

// Writer persists articles into the data directory
type Writer struct {
	dataDir  string
	observer interfaces.ProgressObserver
	logger   arbor.ILogger
}

// NewWriter creates a writer for dataDir
func NewWriter(dataDir string, observer interfaces.ProgressObserver, logger arbor.ILogger) *Writer {
	return &Writer{dataDir: dataDir, observer: observer, logger: logger}
}

// Path returns where the article with key is stored
func (w *Writer) Path(key models.ArticleKey) string {
	return filepath.Join(w.dataDir, key.FileName())
}

// WriteOCR stores a recognized article and returns its path
func (w *Writer) WriteOCR(a *models.Article) (string, error) {
	var buf bytes.Buffer
	if err := WriteOCR(&buf, a); err != nil {
		return "", err
	}
	return w.store(a.Key, buf.Bytes())
}

// Emit stores the extracted text of a non-paginated source for one rule. A page range
// on such a rule cannot be honored; it is reported and ignored.
func (w *Writer) Emit(ctx context.Context, entry models.RuleEntry, sourcePath, content string) (string, error) {
	if entry.PageRange != nil {
		warn := &common.ConfigurationWarning{
			Subject: entry.Title,
			Reason:  fmt.Sprintf("page range %s ignored, %s is not paginated", entry.PageRange, filepath.Base(sourcePath)),
		}
		w.logger.Warn().Str("source", sourcePath).Msg(warn.Error())
		if w.observer != nil {
			w.observer.OnLog(ctx, models.LogEvent{Level: models.LevelWarn, Message: warn.Error(), Source: sourcePath, Article: entry.Title})
		}
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, sourcePath, content); err != nil {
		return "", err
	}
	return w.store(entry.Key(), buf.Bytes())
}

// store writes data to a temp file and renames it into place
func (w *Writer) store(key models.ArticleKey, data []byte) (string, error) {
	if err := models.ValidateArticleKey(key); err != nil {
		return "", err
	}
	path := w.Path(key)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", &common.IOError{Op: "write article", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", &common.IOError{Op: "write article", Path: path, Err: err}
	}
	w.logger.Debug().Str("path", path).Msg("Article written")
	return path, nil
}
