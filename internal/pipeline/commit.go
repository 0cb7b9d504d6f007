package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/ledger"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// Approval is a reviewed transaction ready for the ledger.
type Approval struct {
	Date              string `json:"date"`
	Description       string `json:"description"`
	Amount            string `json:"amount"`
	CategoryApproved  string `json:"category_approved,omitempty"`
	CategorySuggested string `json:"category_suggested,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// Entries converts approvals into ledger entries. The approved category
// wins over the suggested one and is coerced into the fixed set. Every
// approval is checked before anything is returned.
func Entries(approvals []Approval) ([]ledger.Entry, error) {
	if len(approvals) == 0 {
		return nil, ErrNoApprovals
	}
	entries := make([]ledger.Entry, 0, len(approvals))
	for i, a := range approvals {
		date, ok := normalize.Date(a.Date)
		if !ok {
			return nil, fmt.Errorf("%w: item %d: date %q", ErrInvalidApproval, i, a.Date)
		}
		amount, ok := normalize.Amount(a.Amount)
		if !ok {
			return nil, fmt.Errorf("%w: item %d: amount %q", ErrInvalidApproval, i, a.Amount)
		}
		category := a.CategoryApproved
		if normalize.Text(category) == "" {
			category = a.CategorySuggested
		}
		category = domain.CoerceCategory(category)

		entries = append(entries, ledger.Entry{
			Date:            date,
			Description:     a.Description,
			Amount:          amount,
			Category:        category,
			MachinePillar:   domain.DerivePillar(category),
			IntegrityFilter: domain.IntegrityPlanned,
			Notes:           normalize.Text(a.Notes),
		})
	}
	return entries, nil
}

// Commit writes approvals to l and reports appended and duplicate counts.
func Commit(ctx context.Context, l Ledger, approvals []Approval) (ledger.BatchResult, error) {
	entries, err := Entries(approvals)
	if err != nil {
		return ledger.BatchResult{}, err
	}
	res, err := l.AppendTransactions(ctx, entries)
	if err != nil {
		return res, fmt.Errorf("Commit: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("appended", res.Appended).
		Int("duplicates", res.Duplicates).
		Msg("committed transactions")
	return res, nil
}
