package interfaces

import (
	"context"
	"image"

	"github.com/ternarybob/quire/internal/models"
)

// LineRecognizer performs line-level text recognition. It holds one loaded language
// set at a time and is not safe for concurrent use; create one per worker.
type LineRecognizer interface {
	// SetLanguage (re)initializes the engine for lang, e.g. "chi_sim" or "chi_sim+eng"
	SetLanguage(lang string) error

	// RecognizeLines returns the text lines of img in reading order. A line whose
	// RecognizedLine.Err is set failed in the backend and carries no usable text.
	RecognizeLines(ctx context.Context, img image.Image) ([]models.RecognizedLine, error)

	Close() error
}

// RecognizerFactory creates a fresh recognizer loaded with the given language
type RecognizerFactory func(lang string) (LineRecognizer, error)
