package pipeline

import "github.com/dvloznov/statement-ledger/internal/domain"

// Preview limits.
const (
	DefaultPreviewLimit = 500
	MaxPreviewLimit     = 5000
)

// PreviewResult is a batch trimmed for review.
type PreviewResult struct {
	*domain.IngestBatch
	Truncated         bool `json:"truncated"`
	NeedsReviewCount  int  `json:"needs_review_count"`
	TotalTransactions int  `json:"total_transactions"`
	ExcludedCount     int  `json:"excluded_count"`
}

// Preview returns batch with at most limit transactions. A limit outside
// 1..MaxPreviewLimit is clamped; zero means DefaultPreviewLimit. The review
// count covers the returned transactions only.
func Preview(batch *domain.IngestBatch, limit int) PreviewResult {
	switch {
	case limit == 0:
		limit = DefaultPreviewLimit
	case limit < 1:
		limit = 1
	case limit > MaxPreviewLimit:
		limit = MaxPreviewLimit
	}

	trimmed := *batch
	res := PreviewResult{
		TotalTransactions: len(batch.Transactions),
		ExcludedCount:     batch.ExcludedCount(),
	}
	if len(batch.Transactions) > limit {
		trimmed.Transactions = batch.Transactions[:limit]
		res.Truncated = true
	}
	res.IngestBatch = &trimmed
	res.NeedsReviewCount = trimmed.NeedsReviewCount()
	return res
}
