// Package report computes the monthly budget health summary over ledger rows.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/ledger"
	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// Bucket statuses.
const (
	StatusNoData           = "No Data"
	StatusAntifragile      = "Antifragile"
	StatusFragile          = "Fragile"
	StatusDisciplined      = "Disciplined"
	StatusUndisciplined    = "Undisciplined"
	StatusSteward          = "Steward"
	StatusNeedsStewardship = "Needs Stewardship"
)

var (
	machineLimit = decimal.RequireFromString("0.50")
	flowTarget   = decimal.RequireFromString("0.30")
)

func set(labels ...string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

// Category labels are compared lowercased with collapsed whitespace.
var (
	excluded    = set("internal", "transfer", "transfers", "överföring", "overföring")
	income      = set("external income", "income")
	machine     = set("rent", "housing", "food", "groceries", "utilities", "transport", "insurance", "medical", "health", "tithe")
	flow        = set("gym", "hair", "dining", "hobbies")
	sovereignty = set("savings", "investment", "investments", "savings/investments")
)

// Bucket is one spending group relative to income.
type Bucket struct {
	Total      decimal.Decimal `json:"total"`
	Percentage decimal.Decimal `json:"percentage"`
	Status     string          `json:"status"`
}

// Summary is the health report for one partition.
type Summary struct {
	Partition   string          `json:"partition,omitempty"`
	Income      decimal.Decimal `json:"income"`
	Machine     Bucket          `json:"machine"`
	Flow        Bucket          `json:"flow"`
	Sovereignty Bucket          `json:"sovereignty"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Summarize groups rows into income, machine, flow and sovereignty totals.
// Amounts count by magnitude; unparsable or zero amounts are ignored. Flow
// is reported as the larger of actual flow spending and its 30% target.
func Summarize(rows []ledger.Row, now time.Time) Summary {
	s := Summary{LastUpdated: now.UTC()}
	if len(rows) == 0 {
		s.Machine.Status = StatusNoData
		s.Flow.Status = StatusNoData
		s.Sovereignty.Status = StatusNoData
		return s
	}

	var incomeTotal, machineTotal, flowSpend, sovereigntyTotal, titheTotal decimal.Decimal
	for _, r := range rows {
		category := normalize.Key(r.Category)
		if category == "" || excluded[category] {
			continue
		}
		amount, ok := normalize.Amount(r.Amount)
		if !ok || amount.IsZero() {
			continue
		}
		amount = amount.Abs()

		if income[category] {
			incomeTotal = incomeTotal.Add(amount)
		}
		if machine[category] {
			machineTotal = machineTotal.Add(amount)
			if category == "tithe" {
				titheTotal = titheTotal.Add(amount)
			}
		}
		if flow[category] {
			flowSpend = flowSpend.Add(amount)
		}
		if sovereignty[category] {
			sovereigntyTotal = sovereigntyTotal.Add(amount)
		}
	}

	flowTotal := decimal.Max(flowSpend, incomeTotal.Mul(flowTarget))

	s.Income = incomeTotal.Round(2)
	s.Machine = bucket(machineTotal, incomeTotal)
	s.Flow = bucket(flowTotal, incomeTotal)
	s.Sovereignty = bucket(sovereigntyTotal, incomeTotal)

	if !incomeTotal.IsPositive() {
		s.Machine.Status = StatusNoData
		s.Flow.Status = StatusNoData
		s.Sovereignty.Status = StatusNoData
		return s
	}
	s.Machine.Status = StatusFragile
	if machineTotal.LessThanOrEqual(incomeTotal.Mul(machineLimit)) {
		s.Machine.Status = StatusAntifragile
	}
	s.Flow.Status = StatusUndisciplined
	if flowTotal.LessThanOrEqual(incomeTotal.Mul(flowTarget)) {
		s.Flow.Status = StatusDisciplined
	}
	s.Sovereignty.Status = StatusNeedsStewardship
	if titheTotal.IsPositive() && sovereigntyTotal.IsPositive() {
		s.Sovereignty.Status = StatusSteward
	}
	return s
}

func bucket(total, incomeTotal decimal.Decimal) Bucket {
	b := Bucket{Total: total.Round(2)}
	if incomeTotal.IsPositive() {
		b.Percentage = total.DivRound(incomeTotal, 8).Round(4)
	}
	return b
}
