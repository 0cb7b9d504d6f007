package domain

import "strings"

// Uncategorized is the sentinel category for anything outside the fixed set.
const Uncategorized = "Uncategorized"

// IntegrityPlanned is the integrity filter stamped on ingested transactions.
const IntegrityPlanned = "Planned"

// fixedCategories is ordered; the order is what users see in pickers and
// validation dropdowns.
var fixedCategories = []string{
	"Income",
	"Housing",
	"Utilities",
	"Groceries",
	"Dining",
	"Transport",
	"Travel",
	"Shopping",
	"Subscriptions",
	"Health",
	"Education",
	"Business",
	"Taxes",
	"Fees",
	"Transfers",
	"Overföring",
	"Tithe",
	"Charity",
	"Savings/Investments",
	Uncategorized,
}

var (
	machinePillars   = []string{"Needs", "Wants", "Faith", "Growth", "Internal"}
	integrityFilters = []string{IntegrityPlanned, "Impulse", "Silent Test Fail"}
	rootTriggers     = []string{"Stress", "Ego", "Social", "Stewardship"}
)

var pillarByCategory = map[string]string{
	"overföring":          "Internal",
	"transfers":           "Internal",
	"rent":                "Needs",
	"housing":             "Needs",
	"utilities":           "Needs",
	"groceries":           "Needs",
	"transport":           "Needs",
	"health":              "Needs",
	"dining":              "Wants",
	"shopping":            "Wants",
	"subscriptions":       "Wants",
	"travel":              "Wants",
	"tithe":               "Faith",
	"charity":             "Faith",
	"savings/investments": "Growth",
	"education":           "Growth",
	"business":            "Growth",
}

var categoryIndex = func() map[string]string {
	m := make(map[string]string, len(fixedCategories))
	for _, c := range fixedCategories {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// Categories returns the fixed category set in display order.
func Categories() []string {
	return append([]string(nil), fixedCategories...)
}

// MachinePillars returns the allowed values of the pillar column.
func MachinePillars() []string { return append([]string(nil), machinePillars...) }

// IntegrityFilters returns the allowed values of the integrity filter column.
func IntegrityFilters() []string { return append([]string(nil), integrityFilters...) }

// RootTriggers returns the allowed values of the root trigger column.
func RootTriggers() []string { return append([]string(nil), rootTriggers...) }

// LookupCategory returns the canonical label for s when s matches a fixed
// category case-insensitively after trimming.
func LookupCategory(s string) (string, bool) {
	c, ok := categoryIndex[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// CoerceCategory maps s onto the fixed set, returning Uncategorized for
// anything that is not a member.
func CoerceCategory(s string) string {
	if c, ok := LookupCategory(s); ok {
		return c
	}
	return Uncategorized
}

// DerivePillar returns the pillar grouping for a category, or "" when the
// category has none.
func DerivePillar(category string) string {
	return pillarByCategory[strings.ToLower(strings.TrimSpace(category))]
}
