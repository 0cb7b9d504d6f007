package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// Field is a logical statement column.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldCurrency    Field = "currency"
	FieldReference   Field = "reference"
	FieldBalance     Field = "balance"
)

var knownFields = map[Field]bool{
	FieldDate:        true,
	FieldDescription: true,
	FieldAmount:      true,
	FieldDebit:       true,
	FieldCredit:      true,
	FieldCurrency:    true,
	FieldReference:   true,
	FieldBalance:     true,
}

// RawRow is one record pulled out of a statement before normalization. A nil
// field means the source had no such cell; a non-nil field may still hold
// text that fails to parse.
type RawRow struct {
	SourceRow   int
	Date        *string
	Description *string
	Amount      *string
	Currency    *string
	Reference   *string
	Balance     *string
}

func strPtr(s string) *string { return &s }

// Value returns *p, or "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Mapping maps logical fields to zero-based column indexes.
type Mapping map[Field]int

// PositionalMapping is used when no header row is recognized.
var PositionalMapping = Mapping{
	FieldDate:        0,
	FieldDescription: 1,
	FieldAmount:      2,
	FieldCurrency:    3,
}

func (m Mapping) has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Complete reports whether m locates a date, a description and some form of
// amount (a unified column or a debit/credit pair).
func (m Mapping) Complete() bool {
	return m.has(FieldDate) && m.has(FieldDescription) &&
		(m.has(FieldAmount) || m.has(FieldDebit) || m.has(FieldCredit))
}

func (m Mapping) cell(cells []string, f Field) *string {
	idx, ok := m[f]
	if !ok || idx < 0 || idx >= len(cells) {
		return nil
	}
	return strPtr(cells[idx])
}

// Extract builds a RawRow from one record. When no unified amount column is
// mapped, the amount is credit minus debit with a blank side counted as
// zero; a row with both sides blank has no amount.
func (m Mapping) Extract(cells []string, sourceRow int) RawRow {
	row := RawRow{
		SourceRow:   sourceRow,
		Date:        m.cell(cells, FieldDate),
		Description: m.cell(cells, FieldDescription),
		Currency:    m.cell(cells, FieldCurrency),
		Reference:   m.cell(cells, FieldReference),
		Balance:     m.cell(cells, FieldBalance),
	}
	if m.has(FieldAmount) {
		row.Amount = m.cell(cells, FieldAmount)
		return row
	}
	row.Amount = debitCredit(m.cell(cells, FieldDebit), m.cell(cells, FieldCredit))
	return row
}

func debitCredit(debit, credit *string) *string {
	d := strings.TrimSpace(Value(debit))
	c := strings.TrimSpace(Value(credit))
	if d == "" && c == "" {
		return nil
	}

	total := decimal.Zero
	if c != "" {
		v, ok := normalize.Amount(c)
		if !ok {
			return nil
		}
		total = total.Add(v)
	}
	if d != "" {
		v, ok := normalize.Amount(d)
		if !ok {
			return nil
		}
		total = total.Sub(v)
	}
	return strPtr(normalize.FormatAmount(total))
}

// blank reports whether every cell is empty after trimming.
func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
