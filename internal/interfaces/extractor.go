package interfaces

import "context"

// TextExtractor reads the full text of a non-paginated source file
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}
