package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

var (
	// ErrUnsupportedFormat is returned when no parser handles a format.
	ErrUnsupportedFormat = errors.New("unsupported statement format")
	// ErrNoRows is returned when a file yields no rows at all.
	ErrNoRows = errors.New("no rows found in statement")
)

// Result is what a parser extracted from one file.
type Result struct {
	Rows        []RawRow
	Metadata    domain.Metadata
	HeaderFound bool
}

// Parser turns raw file bytes into raw rows.
type Parser interface {
	Format() Format
	Parse(ctx context.Context, data []byte) (*Result, error)
}

// Registry holds one parser per format.
type Registry struct {
	parsers map[Format]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[Format]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := Format(strings.ToLower(string(p.Format())))
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + string(key))
	}
	r.parsers[key] = p
}

// Get returns the parser for format or ErrUnsupportedFormat.
func (r *Registry) Get(format Format) (Parser, error) {
	p, ok := r.parsers[Format(strings.ToLower(string(format)))]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	return p, nil
}

// DefaultRegistry returns a registry with the CSV, XLSX and PDF parsers.
func DefaultRegistry(mapper *HeaderMapper, extractor TextExtractor) *Registry {
	r := NewRegistry()
	r.Register(NewCSVParser(mapper))
	r.Register(NewXLSXParser(mapper))
	r.Register(NewPDFParser(extractor))
	return r
}

// record is a non-blank source record with its 1-based position in the file.
type record struct {
	line  int
	cells []string
}

// tableRows locates the header among records and extracts every record
// after it. Without a header, every record is read positionally.
func tableRows(ctx context.Context, mapper *HeaderMapper, records []record) ([]RawRow, bool) {
	cells := make([][]string, len(records))
	for i, rec := range records {
		cells[i] = rec.cells
	}

	start, mapping, found := 0, PositionalMapping, false
	if idx, m, ok := mapper.Find(ctx, cells); ok {
		start, mapping, found = idx+1, m, true
	}

	rows := make([]RawRow, 0, len(records)-start)
	for _, rec := range records[start:] {
		rows = append(rows, mapping.Extract(rec.cells, rec.line))
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Bool("header_found", found).
		Int("records", len(records)).
		Int("rows", len(rows)).
		Msg("Extracted table rows")
	return rows, found
}
