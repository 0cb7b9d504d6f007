package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	return f.text, f.err
}

func TestParseTextLines(t *testing.T) {
	text := "Bank Statement\n" +
		"Currency: SEK\n" +
		"\n" +
		"2024-01-15 ICA Maxi 1,250.00 -45.50\n" +
		"Page 1 of 2\n" +
		"16.01.2024 - Netflix - -129,00\n" +
		"2024-01-17 2024-01-18 Two dates 10.00\n" +
		"2024-01-19 No amount here\n" +
		"Closing balance 5000.00\n"

	rows := ParseTextLines(text, "SEK")
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 4, first.SourceRow)
	assert.Equal(t, "2024-01-15", Value(first.Date))
	assert.Equal(t, "-45.50", Value(first.Amount), "rightmost amount wins over the balance")
	assert.Equal(t, "ICA Maxi 1,250.00", Value(first.Description))
	assert.Equal(t, "SEK", Value(first.Currency))

	second := rows[1]
	assert.Equal(t, 6, second.SourceRow)
	assert.Equal(t, "16.01.2024", Value(second.Date))
	assert.Equal(t, "-129,00", Value(second.Amount))
	assert.Equal(t, "Netflix", Value(second.Description))
}

func TestParseTextLines_DateDigitsAreNotAmounts(t *testing.T) {
	rows := ParseTextLines("2024-01-19 Opening balance\n", "")
	assert.Empty(t, rows)
}

func TestParseTextLines_LargeAmountWithoutSeparators(t *testing.T) {
	rows := ParseTextLines("2024-02-01 Salary 25000.00\n", "")
	require.Len(t, rows, 1)
	assert.Equal(t, "25000.00", Value(rows[0].Amount))
	assert.Nil(t, rows[0].Currency)
}

func TestPDFParser_Parse(t *testing.T) {
	p := NewPDFParser(fakeExtractor{text: "Account Holder: Jane Doe\nCurrency: GBP\n2024-03-01 Tesco 12.00 -3.20"})

	res, err := p.Parse(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "GBP", Value(res.Rows[0].Currency))
	assert.Equal(t, "-3.20", Value(res.Rows[0].Amount))
	assert.Equal(t, "Jane Doe", res.Metadata.AccountHolder)
}

func TestPDFParser_ExtractorError(t *testing.T) {
	p := NewPDFParser(fakeExtractor{err: errors.New("boom")})

	_, err := p.Parse(context.Background(), nil)
	assert.ErrorContains(t, err, "boom")
}

func TestPDFTextExtractor_Malformed(t *testing.T) {
	_, err := PDFTextExtractor{}.ExtractText(context.Background(), []byte("definitely not a pdf"))
	assert.Error(t, err)
}
