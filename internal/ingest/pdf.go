package ingest

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

// TextExtractor returns the plain text of a document, one visual line per
// text line.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// PDFParser reads transaction lines out of text extracted from a PDF.
type PDFParser struct {
	extractor TextExtractor
}

// NewPDFParser creates a PDF parser. A nil extractor uses PDFTextExtractor.
func NewPDFParser(extractor TextExtractor) *PDFParser {
	if extractor == nil {
		extractor = PDFTextExtractor{}
	}
	return &PDFParser{extractor: extractor}
}

// Format returns FormatPDF.
func (p *PDFParser) Format() Format { return FormatPDF }

// Parse extracts the text and keeps only lines shaped like transactions.
func (p *PDFParser) Parse(ctx context.Context, data []byte) (*Result, error) {
	text, err := p.extractor.ExtractText(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("PDFParser.Parse: extracting text: %w", err)
	}
	meta := ExtractMetadata(text)
	rows := ParseTextLines(text, meta.Currency)

	log := logger.FromContext(ctx)
	log.Debug().
		Int("lines", strings.Count(text, "\n")+1).
		Int("rows", len(rows)).
		Msg("Parsed PDF text lines")
	return &Result{Rows: rows, Metadata: meta}, nil
}

var (
	dateTokenRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{2}[./-]\d{2}[./-]\d{4})\b`)
	numberRunRe = regexp.MustCompile(`[-+]?\d[\d.,]*`)
	amountRe    = regexp.MustCompile(`^[-+]?(?:\d{1,3}(?:[.,]\d{3})+|\d+)(?:[.,]\d{2})?$`)
)

type span struct{ start, end int }

// ParseTextLines applies the line rule to extracted text: a line is a
// transaction when it holds exactly one date token and at least one
// amount-shaped token outside that date. The rightmost amount is taken,
// since running balances usually precede the transaction amount. This is a
// layout heuristic and can pick the wrong column.
func ParseTextLines(text, currency string) []RawRow {
	var rows []RawRow
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dates := dateTokenRe.FindAllStringSubmatchIndex(line, -1)
		if len(dates) != 1 {
			continue
		}
		date := span{dates[0][2], dates[0][3]}

		amount, ok := lastAmount(line, date)
		if !ok {
			continue
		}

		desc := cut(line, date, amount)
		row := RawRow{
			SourceRow:   i + 1,
			Date:        strPtr(line[date.start:date.end]),
			Description: strPtr(strings.Trim(desc, " -")),
			Amount:      strPtr(line[amount.start:amount.end]),
		}
		if currency != "" {
			row.Currency = strPtr(currency)
		}
		rows = append(rows, row)
	}
	return rows
}

// lastAmount finds the rightmost amount-shaped number that does not overlap
// the date token.
func lastAmount(line string, date span) (span, bool) {
	masked := []byte(line)
	for i := date.start; i < date.end; i++ {
		masked[i] = ' '
	}

	found, ok := span{}, false
	for _, loc := range numberRunRe.FindAllIndex(masked, -1) {
		s := span{loc[0], loc[1]}
		for s.end > s.start && strings.ContainsRune(".,", rune(masked[s.end-1])) {
			s.end--
		}
		if amountRe.Match(masked[s.start:s.end]) {
			found, ok = s, true
		}
	}
	return found, ok
}

// cut removes two non-overlapping spans from line and collapses the gap.
func cut(line string, a, b span) string {
	if b.start < a.start {
		a, b = b, a
	}
	return strings.Join(strings.Fields(line[:a.start]+" "+line[a.end:b.start]+" "+line[b.end:]), " ")
}

// wordGap is the horizontal distance, in text space units, above which two
// runs on the same row are treated as separate words.
const wordGap = 1.5

// PDFTextExtractor extracts text with github.com/ledongthuc/pdf, rebuilding
// visual rows from positioned text runs.
type PDFTextExtractor struct{}

// ExtractText implements TextExtractor.
func (PDFTextExtractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDFTextExtractor.ExtractText: malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("PDFTextExtractor.ExtractText: opening PDF: %w", err)
	}

	var lines []string
	for n := 1; n <= r.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(n)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("PDFTextExtractor.ExtractText: page %d: %w", n, err)
		}
		for _, row := range rows {
			lines = append(lines, joinRuns(row.Content))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func joinRuns(runs pdf.TextHorizontal) string {
	var b strings.Builder
	var prevEnd float64
	for i, t := range runs {
		if i > 0 && t.X-prevEnd > wordGap {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return strings.TrimSpace(b.String())
}
