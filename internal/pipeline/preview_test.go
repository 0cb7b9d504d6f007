package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

func batchOf(n, review int) *domain.IngestBatch {
	b := &domain.IngestBatch{BatchID: "b", RawRowCount: n + 1}
	for i := 0; i < n; i++ {
		b.Transactions = append(b.Transactions, domain.NormalizedTransaction{
			SourceRow:   i + 1,
			NeedsReview: i < review,
		})
	}
	return b
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name          string
		n, review     int
		limit         int
		wantLen       int
		wantTruncated bool
		wantReview    int
	}{
		{"under limit", 3, 1, 10, 3, false, 1},
		{"truncated", 10, 5, 3, 3, true, 3},
		{"default limit", 600, 0, 0, DefaultPreviewLimit, true, 0},
		{"negative clamps to one", 4, 4, -2, 1, true, 1},
		{"above max clamps", 5001 + 10, 0, 9999, MaxPreviewLimit, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := batchOf(tt.n, tt.review)
			res := Preview(b, tt.limit)
			assert.Len(t, res.Transactions, tt.wantLen)
			assert.Equal(t, tt.wantTruncated, res.Truncated)
			assert.Equal(t, tt.wantReview, res.NeedsReviewCount)
			assert.Equal(t, tt.n, res.TotalTransactions)
			assert.Equal(t, 1, res.ExcludedCount)
			assert.Len(t, b.Transactions, tt.n, "input batch must not change")
		})
	}
}
