// -----------------------------------------------------------------------
// OCR Recognizer - Per-article line recognition with confidence statistics
// -----------------------------------------------------------------------

package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
	"github.com/ternarybob/quire/internal/services/progress"
	"github.com/ternarybob/quire/internal/services/rasterize"
)

// Recognizer runs line recognition for the rules of one source file. It owns one
// engine and tracks which language that engine has loaded. Not safe for concurrent use.
type Recognizer struct {
	factory         interfaces.RecognizerFactory
	engine          interfaces.LineRecognizer
	currentLanguage string
	defaultLanguage string
	excludeEmpty    bool
	observer        interfaces.ProgressObserver
	logger          arbor.ILogger
}

// NewRecognizer creates a recognizer. The engine is created on first use.
func NewRecognizer(factory interfaces.RecognizerFactory, cfg common.OCRConfig, observer interfaces.ProgressObserver, logger arbor.ILogger) *Recognizer {
	if observer == nil {
		observer = progress.Nop{}
	}
	return &Recognizer{
		factory:         factory,
		defaultLanguage: cfg.DefaultLanguage,
		excludeEmpty:    cfg.ExcludeEmptyPages,
		observer:        observer,
		logger:          logger,
	}
}

// CurrentLanguage returns the language loaded in the engine, empty before first use
func (r *Recognizer) CurrentLanguage() string {
	return r.currentLanguage
}

// Close releases the engine
func (r *Recognizer) Close() error {
	if r.engine == nil {
		return nil
	}
	err := r.engine.Close()
	r.engine = nil
	r.currentLanguage = ""
	return err
}

// useLanguage switches the engine to lang when it has a different language loaded
func (r *Recognizer) useLanguage(lang string) error {
	if r.engine == nil {
		engine, err := r.factory(lang)
		if err != nil {
			return fmt.Errorf("failed to start recognizer for %q: %w", lang, err)
		}
		r.engine = engine
		r.currentLanguage = lang
		return nil
	}
	if lang == r.currentLanguage {
		return nil
	}

	r.logger.Debug().Str("from", r.currentLanguage).Str("to", lang).Msg("Switching recognition language")
	if err := r.engine.SetLanguage(lang); err != nil {
		r.currentLanguage = ""
		return fmt.Errorf("failed to switch recognizer to %q: %w", lang, err)
	}
	r.currentLanguage = lang
	return nil
}

// RecognizeArticle recognizes pages begin..end of an entry. pages must map every page
// of the range to its image. Line faults are logged and skipped; any other failure
// aborts the article.
func (r *Recognizer) RecognizeArticle(ctx context.Context, entry models.RuleEntry, pages map[int]string, first, last int, tick func()) (*models.Article, error) {
	lang := entry.Params.Lang
	if lang == "" {
		lang = r.defaultLanguage
	}
	if err := r.useLanguage(lang); err != nil {
		return nil, err
	}

	article := &models.Article{Key: entry.Key()}
	for p := first; p <= last; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, ok := pages[p]
		if !ok {
			return nil, fmt.Errorf("page %d has no image", p)
		}

		page, err := r.recognizePage(ctx, entry, p, path)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p, err)
		}
		article.Pages = append(article.Pages, page)
		if tick != nil {
			tick()
		}
	}

	article.Aggregate = Aggregate(article.Pages, r.excludeEmpty)
	return article, nil
}

func (r *Recognizer) recognizePage(ctx context.Context, entry models.RuleEntry, number int, path string) (models.ArticlePage, error) {
	page := models.ArticlePage{Number: number, ImagePath: path}

	img, err := rasterize.LoadImage(path)
	if err != nil {
		return page, err
	}
	prepared, err := Prepare(img, entry.Params.Crop)
	if err != nil {
		return page, err
	}

	recognized, err := r.engine.RecognizeLines(ctx, prepared)
	if err != nil {
		return page, fmt.Errorf("recognition failed: %w", err)
	}

	for i, line := range recognized {
		if line.Err == nil && !utf8.ValidString(line.Text) {
			line.Err = fmt.Errorf("backend returned invalid UTF-8")
		}
		if line.Err != nil {
			fault := &common.RecognitionFault{Image: path, Page: number, Line: i + 1, Err: line.Err}
			page.LineFaults++
			r.logger.Warn().Err(fault).Str("article", entry.Title).Msg("Skipping unrecognized line")
			r.observer.OnLog(ctx, models.LogEvent{Level: models.LevelWarn, Message: fault.Error(), Article: entry.Title})
			continue
		}
		// blank lines keep their confidence in the page average
		page.Lines = append(page.Lines, models.ArticleLine{Confidence: line.Confidence, Text: NormalizeLine(line.Text)})
	}

	page.Average = PageAverage(page.Lines)
	FlagLines(page.Lines, page.Average)

	r.logger.Debug().
		Str("article", entry.Title).
		Int("page", number).
		Int("lines", len(page.Lines)).
		Float64("average", page.Average).
		Msg("Page recognized")

	return page, nil
}

// NormalizeLine trims a recognized line, drops the spaces tesseract puts next to CJK
// characters and collapses other whitespace runs to one space.
func NormalizeLine(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(fields[0])
	for _, f := range fields[1:] {
		prev, _ := utf8.DecodeLastRuneInString(b.String())
		next, _ := utf8.DecodeRuneInString(f)
		if !IsCJK(prev) && !IsCJK(next) {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	return b.String()
}
