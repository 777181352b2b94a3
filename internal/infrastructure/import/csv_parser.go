package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// candidateDelimiters are sniffed from the header line when no delimiter is forced
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// CSVParser reads platform statement exports: a header row followed by data rows
type CSVParser struct {
	delimiter  rune
	sniff      bool
	lazyQuotes bool
	trimSpace  bool
	maxBytes   int64
	headers    []string
	headerMap  map[string]int
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter forces the field delimiter and disables sniffing
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
		p.sniff = false
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) ParserOption {
	return func(p *CSVParser) {
		p.trimSpace = trim
	}
}

// WithMaxBytes rejects inputs larger than n bytes
func WithMaxBytes(n int64) ParserOption {
	return func(p *CSVParser) {
		p.maxBytes = n
	}
}

// NewCSVParser creates a parser over the whole input. A UTF-8 BOM is dropped
// and input that is not valid UTF-8 is decoded as Windows-1252, which is what
// spreadsheet tools emit for "£" on UK locales.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter:  ',',
		sniff:      true,
		lazyQuotes: true,
		trimSpace:  true,
		headerMap:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	var src io.Reader = r
	if parser.maxBytes > 0 {
		src = io.LimitReader(r, parser.maxBytes+1)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if parser.maxBytes > 0 && int64(len(content)) > parser.maxBytes {
		return nil, ErrFileTooLarge
	}

	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(content) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), content)
		if err != nil {
			return nil, ErrInvalidEncoding
		}
		content = decoded
	}

	if parser.sniff {
		parser.delimiter = sniffDelimiter(content)
	}

	parser.reader = csv.NewReader(bufio.NewReader(bytes.NewReader(content)))
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.TrimLeadingSpace = parser.trimSpace
	parser.reader.FieldsPerRecord = -1

	return parser, nil
}

// sniffDelimiter picks the candidate occurring most often on the first line
func sniffDelimiter(content []byte) rune {
	line := content
	if idx := bytes.IndexByte(content, '\n'); idx >= 0 {
		line = content[:idx]
	}
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(string(line), string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseHeader reads and parses the header row
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		header := h
		if p.trimSpace {
			header = strings.TrimSpace(header)
		}
		p.headers[i] = header
		if _, dup := p.headerMap[header]; !dup {
			p.headerMap[header] = i
		}
	}

	if len(p.headers) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

// Headers returns the parsed header names
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a header exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// Row represents a parsed CSV row with its data and line number
type Row struct {
	LineNumber int
	Data       map[string]string
	RawFields  []string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row from the CSV
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.currentRow++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	p.totalRows++

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headers)),
		RawFields:  record,
	}
	for i, header := range p.headers {
		if _, seen := row.Data[header]; seen {
			continue
		}
		value := ""
		if i < len(record) {
			value = record[i]
			if p.trimSpace {
				value = strings.TrimSpace(value)
			}
		}
		row.Data[header] = value
	}
	return row, nil
}

// ReadAllRows reads all remaining rows, skipping blank ones. Malformed
// lines are reported rather than failing so one bad line never loses the file.
func (p *CSVParser) ReadAllRows() ([]*Row, []SkippedLine) {
	var rows []*Row
	var skipped []SkippedLine
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped = append(skipped, SkippedLine{Line: p.currentRow, Reason: err.Error()})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

// TotalRows returns the total number of data rows read
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}

// Table is a fully-read CSV
type Table struct {
	Headers []string
	Rows    []*Row
	Skipped []SkippedLine
}

// ReadTable parses header and rows from a byte slice
func ReadTable(data []byte, opts ...ParserOption) (*Table, error) {
	parser, err := NewCSVParser(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	rows, skipped := parser.ReadAllRows()
	return &Table{Headers: parser.Headers(), Rows: rows, Skipped: skipped}, nil
}

// Column returns every value of one column
func (t *Table) Column(header string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.Get(header))
	}
	return out
}
