package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSVParser() *CSVParser {
	return NewCSVParser(NewHeaderMapper(DefaultProfiles(), 0))
}

func TestCSVParser_HeaderRow(t *testing.T) {
	data := []byte("Date,Description,Amount,Category\n2024-01-01,Coffee Shop,-4.50,\n")

	res, err := newTestCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.True(t, res.HeaderFound)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, 2, row.SourceRow)
	assert.Equal(t, "2024-01-01", Value(row.Date))
	assert.Equal(t, "Coffee Shop", Value(row.Description))
	assert.Equal(t, "-4.50", Value(row.Amount))
	assert.Nil(t, row.Currency)
}

func TestCSVParser_DebitCreditSemicolon(t *testing.T) {
	data := []byte("Datum;Text;Debit;Credit\n2024-02-03;Hyra;100,00;\n2024-02-04;Lön;;25 000,00\n")

	res, err := newTestCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "-100.00", Value(res.Rows[0].Amount))
	assert.Equal(t, "25000.00", Value(res.Rows[1].Amount))
}

func TestCSVParser_PreambleAndMetadata(t *testing.T) {
	data := []byte("Account Holder: Jane Doe\nCurrency: SEK\n\n" +
		"Bokföringsdag,Beskrivning,Belopp\n" +
		"2024-03-01,ICA Maxi,\"-123,45\"\n" +
		",,\n" +
		"2024-03-02,Swish,50\n")

	res, err := newTestCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.True(t, res.HeaderFound)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, "Jane Doe", res.Metadata.AccountHolder)
	assert.Equal(t, "SEK", res.Metadata.Currency)
	assert.Equal(t, "-123,45", Value(res.Rows[0].Amount))
	assert.Equal(t, 5, res.Rows[0].SourceRow)
	assert.Equal(t, 7, res.Rows[1].SourceRow)
}

func TestCSVParser_PositionalFallback(t *testing.T) {
	data := []byte("2024-01-01\tCoffee\t-4.50\tSEK\n2024-01-02\tTea\t-3.00\tSEK\n")

	res, err := newTestCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	assert.False(t, res.HeaderFound)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Coffee", Value(res.Rows[0].Description))
	assert.Equal(t, "SEK", Value(res.Rows[0].Currency))
}

func TestCSVParser_Latin1(t *testing.T) {
	// "Överföring" encoded as Windows-1252.
	data := []byte("Date,Description,Amount\n2024-01-01,\xd6verf\xf6ring,-10\n")

	res, err := newTestCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Överföring", Value(res.Rows[0].Description))
}

func TestCSVParser_BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Description,Amount\n2024-01-01,Coffee,-1\n")...)

	res, err := newTestCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, res.HeaderFound)
	assert.Len(t, res.Rows, 1)
}

func TestCSVParser_Empty(t *testing.T) {
	res, err := newTestCSVParser().Parse(context.Background(), []byte("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3", ','},
		{"semicolon with decimal commas", "a;b;c\n1;2,50;3", ';'},
		{"tab", "a\tb\tc", '\t'},
		{"quoted commas ignored", "\"a,b,c\";d;e", ';'},
		{"no delimiter", "hello", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffDelimiter(tt.text))
		})
	}
}
