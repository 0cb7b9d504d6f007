package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters is ordered; on equal counts the earlier one wins.
var candidateDelimiters = []rune{',', ';', '\t'}

const sniffLines = 10

// CSVParser reads delimited text exports.
type CSVParser struct {
	mapper *HeaderMapper
}

// NewCSVParser creates a CSV parser using mapper for header detection.
func NewCSVParser(mapper *HeaderMapper) *CSVParser {
	return &CSVParser{mapper: mapper}
}

// Format returns FormatCSV.
func (p *CSVParser) Format() Format { return FormatCSV }

// Parse decodes the file, picks the delimiter and extracts rows.
func (p *CSVParser) Parse(ctx context.Context, data []byte) (*Result, error) {
	log := logger.FromContext(ctx)

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("CSVParser.Parse: decoding: %w", err)
	}
	delim := sniffDelimiter(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records []record
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.Debug().Int("line", perr.Line).Err(perr.Err).Msg("Skipping malformed CSV record")
				continue
			}
			return nil, fmt.Errorf("CSVParser.Parse: reading records: %w", err)
		}
		if blank(cells) {
			continue
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}

	log.Debug().Str("delimiter", string(delim)).Int("records", len(records)).Msg("Read CSV records")

	rows, found := tableRows(ctx, p.mapper, records)
	return &Result{
		Rows:        rows,
		Metadata:    ExtractMetadata(text),
		HeaderFound: found,
	}, nil
}

// decodeText strips a UTF-8 byte order mark and falls back to Windows-1252
// when the content is not valid UTF-8.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// sniffDelimiter counts each candidate outside quotes over the first
// non-blank lines and returns the most frequent one, defaulting to comma.
func sniffDelimiter(text string) rune {
	counts := make(map[rune]int, len(candidateDelimiters))
	seen := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		inQuotes := false
		for _, ch := range line {
			if ch == '"' {
				inQuotes = !inQuotes
				continue
			}
			switch {
			case inQuotes:
			case ch == ',', ch == ';', ch == '\t':
				counts[ch]++
			}
		}
		seen++
		if seen >= sniffLines {
			break
		}
	}

	best, bestCount := candidateDelimiters[0], 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
