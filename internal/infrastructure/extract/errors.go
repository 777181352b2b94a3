package extract

import (
	"errors"
	"fmt"

	"github.com/hungrytum/franchise-billing/internal/domain/shared"
)

// ExtractionError is returned when a statement could not be read at all.
// Message is safe for operators; Detail carries the underlying reason and is
// only surfaced outside production.
type ExtractionError struct {
	Message string
	Detail  string
	Cause   error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Unwrap exposes the underlying cause
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is lets callers match with errors.Is(err, shared.ErrExtractionFailed)
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(shared.ErrExtractionFailed, target)
}

// DomainError converts the error for presentation, hiding Detail in production
func (e *ExtractionError) DomainError(production bool) *shared.DomainError {
	msg := e.Message
	if !production && e.Detail != "" {
		msg = fmt.Sprintf("%s (%s)", e.Message, e.Detail)
	}
	return shared.WrapDomainError(shared.ErrExtractionFailed.Code, msg, e.Cause)
}

func extractionFailed(message string, cause error) *ExtractionError {
	e := &ExtractionError{Message: message, Cause: cause}
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// unsupported builds an error matching shared.ErrUnsupportedFormat
func unsupported(message string) error {
	return shared.NewDomainError(shared.ErrUnsupportedFormat.Code, message)
}

// Operator-facing messages
const (
	msgUnsupportedType = "Unsupported file type. Please upload a CSV, PDF, or DOC file."
	msgBinaryDoc       = "This appears to be a binary .doc file. Just Eat invoices are usually HTML files saved as .doc, please re-download it from Just Eat Partner Centre."
	msgSpreadsheet     = "Spreadsheets are only accepted through the Slerp import."
	msgPDFUnreadable   = "Could not read the PDF. For Deliveroo, re-download the Payment Statement PDF or try exporting CSV from the partner hub."
	msgCSVUnreadable   = "Could not read the CSV file."
)
