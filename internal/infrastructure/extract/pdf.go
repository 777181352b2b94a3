package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// TextSource turns PDF bytes into plain text, one page per line
type TextSource interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// Default PDF limits
const (
	DefaultMaxPDFBytes = 15 * 1024 * 1024
	DefaultTextTimeout = 30 * time.Second
)

// PDFTextSource reads embedded text with github.com/ledongthuc/pdf. Scanned
// statements without a text layer yield an empty string.
type PDFTextSource struct{}

// NewPDFTextSource creates the default text source
func NewPDFTextSource() *PDFTextSource {
	return &PDFTextSource{}
}

// Text extracts page text, giving up when ctx is done
func (s *PDFTextSource) Text(ctx context.Context, data []byte) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := readPDFText(ctx, data)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-done:
		return out.text, out.err
	}
}

func readPDFText(ctx context.Context, data []byte) (text string, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
