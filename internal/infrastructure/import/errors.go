package csvimport

import (
	"errors"
	"fmt"
)

// Export-level failures. The extractor turns these into a single
// "could not read this CSV" message for the uploader.
var (
	ErrEmptyFile       = errors.New("statement export is empty")
	ErrInvalidEncoding = errors.New("statement export is neither UTF-8 nor Windows-1252")
	ErrMissingHeader   = errors.New("statement export has no header row")
	ErrFileTooLarge    = errors.New("statement export exceeds the size limit")
)

// SkippedLine is a line dropped because the CSV reader could not split it,
// typically a stray quote in a free-text column. Totals are computed from
// the remaining lines.
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (s SkippedLine) Error() string {
	return fmt.Sprintf("line %d skipped: %s", s.Line, s.Reason)
}
