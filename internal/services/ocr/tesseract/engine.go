// -----------------------------------------------------------------------
// Tesseract Engine - Line recognition backed by gosseract
// -----------------------------------------------------------------------

package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/interfaces"
	"github.com/ternarybob/quire/internal/models"
)

// Engine wraps one gosseract client. Language sets use tesseract's "a+b" notation.
type Engine struct {
	client   *gosseract.Client
	language string
}

var _ interfaces.LineRecognizer = (*Engine)(nil)

// NewEngine creates an engine loaded with lang
func NewEngine(cfg common.OCRConfig, lang string) (*Engine, error) {
	client := gosseract.NewClient()
	if cfg.TessdataPath != "" {
		client.TessdataPrefix = cfg.TessdataPath
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}

	e := &Engine{client: client}
	if err := e.SetLanguage(lang); err != nil {
		client.Close()
		return nil, err
	}
	return e, nil
}

// Factory returns a RecognizerFactory building engines from cfg
func Factory(cfg common.OCRConfig) interfaces.RecognizerFactory {
	return func(lang string) (interfaces.LineRecognizer, error) {
		return NewEngine(cfg, lang)
	}
}

// SetLanguage reloads the engine with lang
func (e *Engine) SetLanguage(lang string) error {
	langs := strings.Split(lang, "+")
	if err := e.client.SetLanguage(langs...); err != nil {
		return fmt.Errorf("set language %q: %w", lang, err)
	}
	e.language = lang
	return nil
}

// RecognizeLines returns the text lines of img with their confidences
func (e *Engine) RecognizeLines(ctx context.Context, img image.Image) ([]models.RecognizedLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}

	lines := make([]models.RecognizedLine, 0, len(boxes))
	for _, b := range boxes {
		lines = append(lines, models.RecognizedLine{Text: strings.TrimSpace(b.Word), Confidence: b.Confidence})
	}
	return lines, nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}
