// Package extract reads gross revenue out of aggregator sales statements
// (CSV exports, PDF statements and HTML invoices) and Slerp order exports.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hungrytum/franchise-billing/internal/domain/franchise"
	"github.com/hungrytum/franchise-billing/internal/domain/shared"
	"github.com/hungrytum/franchise-billing/internal/domain/statement"
	csvimport "github.com/hungrytum/franchise-billing/internal/infrastructure/import"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Input is one uploaded statement
type Input struct {
	Filename string
	Platform franchise.Platform
	Data     []byte
}

// Extractor reads one statement format
type Extractor interface {
	Extract(ctx context.Context, in Input) (*statement.ParseResult, error)
}

// Config bounds the work spent on a single statement
type Config struct {
	MaxPDFBytes int64
	MaxCSVBytes int64
	TextTimeout time.Duration
}

// DefaultConfig returns the default limits
func DefaultConfig() Config {
	return Config{
		MaxPDFBytes: DefaultMaxPDFBytes,
		TextTimeout: DefaultTextTimeout,
	}
}

// Detect decides how a statement is read. HTML is recognised by content,
// whatever the file is called.
func Detect(filename string, data []byte) (franchise.SourceKind, error) {
	if LooksLikeHTML(data) {
		return franchise.SourceHTML, nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return franchise.SourceCSV, nil
	case ".pdf":
		return franchise.SourcePDF, nil
	case ".html", ".htm":
		return franchise.SourceHTML, nil
	case ".doc", ".docx":
		return "", unsupported(msgBinaryDoc)
	case ".xlsx", ".xls":
		return "", unsupported(msgSpreadsheet)
	default:
		return "", unsupported(msgUnsupportedType)
	}
}

// CSVExtractor reads tabular exports
type CSVExtractor struct {
	maxBytes int64
}

// Extract implements Extractor
func (e *CSVExtractor) Extract(_ context.Context, in Input) (*statement.ParseResult, error) {
	var opts []csvimport.ParserOption
	if e.maxBytes > 0 {
		opts = append(opts, csvimport.WithMaxBytes(e.maxBytes))
	}
	return FromCSV(in.Data, in.Platform, opts...)
}

// PDFExtractor reads PDF statements through a TextSource
type PDFExtractor struct {
	source   TextSource
	maxBytes int64
	timeout  time.Duration
}

// Extract implements Extractor
func (e *PDFExtractor) Extract(ctx context.Context, in Input) (*statement.ParseResult, error) {
	if e.maxBytes > 0 && int64(len(in.Data)) > e.maxBytes {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf(
			"PDF is too large (max %dMB). Try a shorter date range or use CSV if available.", e.maxBytes/1024/1024))
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	text, err := e.source.Text(ctx, in.Data)
	if err != nil {
		return nil, extractionFailed(msgPDFUnreadable, err)
	}
	return FromText(text, in.Platform), nil
}

// HTMLExtractor reads HTML statements, including those saved as .doc
type HTMLExtractor struct{}

// Extract implements Extractor
func (HTMLExtractor) Extract(_ context.Context, in Input) (*statement.ParseResult, error) {
	return FromHTML(string(in.Data), in.Platform), nil
}

// Router dispatches a statement to the extractor for its format and fills in
// the period from the file name when the content had none.
type Router struct {
	extractors map[franchise.SourceKind]Extractor
	logger     *zap.Logger
}

// NewRouter creates a router with the CSV, PDF and HTML extractors
func NewRouter(cfg Config, source TextSource, logger *zap.Logger) *Router {
	if source == nil {
		source = NewPDFTextSource()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		extractors: map[franchise.SourceKind]Extractor{
			franchise.SourceCSV:  &CSVExtractor{maxBytes: cfg.MaxCSVBytes},
			franchise.SourcePDF:  &PDFExtractor{source: source, maxBytes: cfg.MaxPDFBytes, timeout: cfg.TextTimeout},
			franchise.SourceHTML: HTMLExtractor{},
		},
		logger: logger,
	}
}

// Extract implements Extractor
func (r *Router) Extract(ctx context.Context, in Input) (*statement.ParseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "extract",
		telemetry.WithAttribute("platform", string(in.Platform)),
		telemetry.WithAttribute("filename", in.Filename),
	)
	defer span.End()

	if !in.Platform.IsAggregator() {
		err := unsupported(fmt.Sprintf("%s statements are imported from the order export spreadsheet", in.Platform.Label()))
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "File is empty")
	}

	kind, err := Detect(in.Filename, in.Data)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result, err := r.extractors[kind].Extract(ctx, in)
	if err != nil {
		telemetry.RecordError(span, err)
		r.logger.Warn("Statement extraction failed",
			zap.String("filename", in.Filename),
			zap.String("platform", string(in.Platform)),
			zap.String("source", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}
	if result.InferredPeriod == nil {
		result.WithPeriod(PeriodFromFilename(in.Filename))
	}

	telemetry.SetAttributes(span,
		"source", string(kind),
		"confidence", string(result.Confidence),
	)
	r.logger.Debug("Statement extracted",
		zap.String("filename", in.Filename),
		zap.String("platform", string(in.Platform)),
		zap.String("source", string(kind)),
		zap.String("gross_revenue", result.GrossRevenue.StringFixed(2)),
		zap.String("confidence", string(result.Confidence)),
		zap.String("matched_rule", result.MatchedRule),
	)
	return result, nil
}

var _ Extractor = (*Router)(nil)
