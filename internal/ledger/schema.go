package ledger

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// Headers is the canonical 8-column header row. Column order is part of the
// stored format.
var Headers = []string{
	"Date",
	"Description",
	"Amount",
	"Category",
	"Machine Pillar",
	"Integrity Filter",
	"Root Trigger",
	"Notes",
}

// CoreHeaders is the 4-column header variant.
var CoreHeaders = Headers[:4]

const (
	colDate = iota
	colDescription
	colAmount
	colCategory
	colPillar
	colIntegrity
	colTrigger
	colNotes
)

// readRange covers every ledger column.
const readRange = "A:H"

// DetectSchema returns 8 or 4 when row is the full or core header row
// (case- and whitespace-insensitive), and 0 when it is not a header.
func DetectSchema(row []string) int {
	switch {
	case matchesHeader(row, Headers):
		return len(Headers)
	case matchesHeader(row, CoreHeaders):
		return len(CoreHeaders)
	default:
		return 0
	}
}

func matchesHeader(row, header []string) bool {
	if len(row) < len(header) {
		return false
	}
	for i, h := range header {
		if normalize.Key(row[i]) != normalize.Key(h) {
			return false
		}
	}
	return true
}

// cellDate returns the ISO form of a stored date cell when the backend hands
// back a spreadsheet serial number. Other values pass through trimmed.
func cellDate(s string) string {
	if d, ok := normalize.SerialDate(s); ok {
		return d.String()
	}
	return strings.TrimSpace(s)
}

// PartitionStyle selects how month partitions are named.
type PartitionStyle string

const (
	// StyleISO names partitions "YYYY-MM".
	StyleISO PartitionStyle = "iso"
	// StyleLocalized names partitions with the month name in the store's
	// locale followed by the year, e.g. "Mars 2024".
	StyleLocalized PartitionStyle = "localized"
)

var monthNames = map[string][12]string{
	"en": {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
	"sv": {"Januari", "Februari", "Mars", "April", "Maj", "Juni",
		"Juli", "Augusti", "September", "Oktober", "November", "December"},
	"it": {"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
		"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"},
}

// PartitionLabel names the partition holding d. Locales other than sv and
// it use English month names.
func PartitionLabel(style PartitionStyle, locale string, d civil.Date) string {
	if style != StyleLocalized {
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	}
	lang := strings.ToLower(strings.SplitN(strings.ReplaceAll(locale, "-", "_"), "_", 2)[0])
	names, ok := monthNames[lang]
	if !ok {
		names = monthNames["en"]
	}
	return fmt.Sprintf("%s %d", names[d.Month-1], d.Year)
}
