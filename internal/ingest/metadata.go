package ingest

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

var (
	accountHolderRe   = regexp.MustCompile(`(?i)Account Holder:\s*(.+)`)
	accountTypeRe     = regexp.MustCompile(`(?i)Account Type:\s*(.+)`)
	accountNumberRe   = regexp.MustCompile(`(?i)Account Number:\s*(.+)`)
	reportingPeriodRe = regexp.MustCompile(`(?i)Reporting Period:\s*(.+)`)
	currencyRe        = regexp.MustCompile(`(?i)Currency:\s*([A-Z]{3})`)
)

// ExtractMetadata pulls labelled preamble fields out of statement text.
// Missing labels leave the corresponding field empty.
func ExtractMetadata(text string) domain.Metadata {
	return domain.Metadata{
		AccountHolder:   firstMatch(accountHolderRe, text),
		AccountType:     firstMatch(accountTypeRe, text),
		AccountNumber:   firstMatch(accountNumberRe, text),
		ReportingPeriod: firstMatch(reportingPeriodRe, text),
		Currency:        strings.ToUpper(firstMatch(currencyRe, text)),
	}
}

func firstMatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), ".")
}
