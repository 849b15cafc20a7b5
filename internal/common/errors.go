// -----------------------------------------------------------------------
// Errors - Typed failures separating bad input from unexpected faults
// -----------------------------------------------------------------------

package common

import (
	"errors"
	"fmt"
)

// ErrBadInput is matched (errors.Is) by every failure caused by the user's input:
// malformed index rows and missing folders or files that must exist.
var ErrBadInput = errors.New("bad input")

// IsBadInput reports whether err was caused by the input rather than an unexpected fault
func IsBadInput(err error) bool {
	return errors.Is(err, ErrBadInput)
}

// FormatError is a malformed index or parameter row. It is fatal for the row only.
type FormatError struct {
	Source string // index file
	Row    int    // 1-based data row, 0 when unknown
	Reason string
}

func (e *FormatError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("format error in %s row %d: %s", e.Source, e.Row, e.Reason)
	}
	return fmt.Sprintf("format error in %s: %s", e.Source, e.Reason)
}

func (e *FormatError) Is(target error) bool { return target == ErrBadInput }

// IOError is a run-level file system failure. Missing marks paths that were expected
// to exist (root folders, index files), which count as bad input.
type IOError struct {
	Op      string
	Path    string
	Missing bool
	Err     error
}

func (e *IOError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return e.Missing && target == ErrBadInput }

// RecognitionFault is a line-level backend failure. It is logged and skipped.
type RecognitionFault struct {
	Image string
	Page  int
	Line  int
	Err   error
}

func (e *RecognitionFault) Error() string {
	return fmt.Sprintf("recognition fault on page %d line %d (%s): %v", e.Page, e.Line, e.Image, e.Err)
}

func (e *RecognitionFault) Unwrap() error { return e.Err }

// ConfigurationWarning is a contradictory but recoverable setting. It never aborts work.
type ConfigurationWarning struct {
	Subject string
	Reason  string
}

func (w *ConfigurationWarning) Error() string {
	return fmt.Sprintf("configuration warning for %s: %s", w.Subject, w.Reason)
}
