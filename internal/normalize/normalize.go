// Package normalize turns the textual dates, amounts and descriptions found
// in bank statements into canonical values.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// isoLayouts are tried before dateLayouts and cover the ISO-8601 forms a
// statement export realistically contains.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102",
}

// dateLayouts are tried in order and the first match wins. Day-first slash
// dates come before month-first ones, so "03/04/2024" is 3 April.
// Single-digit days and months are accepted.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2.1.2006",
	"1/2/2006",
	"2-1-2006",
	"1-2-2006",
}

// Date parses s into a calendar date. It returns false when no layout matches;
// callers drop the row in that case.
func Date(s string) (civil.Date, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return civil.Date{}, false
	}
	if d, err := civil.ParseDate(raw); err == nil {
		return d, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t), true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// serialEpoch is day zero of spreadsheet serial dates (Google Sheets and the
// Excel 1900 system after February 1900).
var serialEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

// maxSerial is 9999-12-31.
const maxSerial = 2958465

// SerialDate converts a spreadsheet serial day number such as "45292" into a
// date. A fractional part is a time of day and is ignored.
func SerialDate(s string) (civil.Date, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !(f >= 1 && f <= maxSerial) {
		return civil.Date{}, false
	}
	return serialEpoch.AddDays(int(math.Floor(f))), true
}

// DateOrRaw returns the ISO form of s when it parses, otherwise the trimmed
// input. Ledger comparisons use it so unparsable stored dates still compare
// by text.
func DateOrRaw(s string) string {
	if d, ok := Date(s); ok {
		return d.String()
	}
	return strings.TrimSpace(s)
}

// Amount parses a regional amount string. Whitespace is removed; when both
// ',' and '.' occur the comma is a thousands separator, when only ',' occurs
// it is the decimal point. The result is rounded half-to-even to 2 places.
//
// "1.234,56" therefore parses as 1.23 (both separators present), which is a
// known limitation of the rule rather than a bug.
func Amount(s string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	cleaned = strings.TrimPrefix(cleaned, "+")
	if strings.ContainsAny(cleaned, "eE") || integerDigits(cleaned) > maxIntegerDigits {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d.RoundBank(2), true
}

// maxIntegerDigits keeps a rounded amount within 28 significant digits.
const maxIntegerDigits = 26

// integerDigits counts the digits before the decimal point, ignoring the
// sign and leading zeros.
func integerDigits(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimLeft(s, "-0")
	return len(s)
}

// FormatAmount renders d with exactly two fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// EquivalentAmount compares two amount strings by value when both parse and
// by normalized text otherwise. It is meant for duplicate detection only.
func EquivalentAmount(a, b string) bool {
	da, okA := Amount(a)
	db, okB := Amount(b)
	if okA && okB {
		return da.Equal(db)
	}
	return Key(a) == Key(b)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Text trims s and collapses internal whitespace runs to one space.
func Text(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Key is the case- and whitespace-insensitive comparison form of s.
func Key(s string) string {
	return strings.ToLower(Text(s))
}

var (
	digitRun    = regexp.MustCompile(`\d+`)
	nonLetterRe = regexp.MustCompile(`[^a-z\s]`)
)

// Merchant produces the matching form of a description: lowercase ASCII
// letters separated by single spaces, with digits and punctuation removed.
func Merchant(s string) string {
	m := strings.ToLower(Text(s))
	m = digitRun.ReplaceAllString(m, " ")
	m = nonLetterRe.ReplaceAllString(m, " ")
	return Text(m)
}
