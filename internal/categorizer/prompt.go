package categorizer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// BuildPrompt renders the closed-choice prompt sent to the oracle.
func BuildPrompt(description string, amount decimal.Decimal) string {
	return "Choose exactly one category from this list:\n" +
		strings.Join(domain.Categories(), ", ") + "\n" +
		fmt.Sprintf("Transaction: description=%q, amount=%q. ", description, amount.StringFixed(2)) +
		"Respond with only the category name."
}

// ParseResponse matches an oracle reply against the fixed category set,
// ignoring case, surrounding whitespace, quotes, code fences and trailing
// periods.
func ParseResponse(raw string) (string, bool) {
	s := cleanModelText(raw)
	if s == "" {
		return "", false
	}
	return domain.LookupCategory(s)
}

func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```text ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			s = strings.Trim(s, "`")
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)
	s = strings.Trim(s, `."'`+"`")
	return strings.TrimSpace(s)
}
