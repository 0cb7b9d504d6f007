package pipeline

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/categorizer"
	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/ledger"
)

// Classifier suggests a category for one transaction. It never fails.
type Classifier interface {
	Suggest(ctx context.Context, description string, amount decimal.Decimal) categorizer.Suggestion
}

// Archiver stores the raw uploaded file and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, batchID, filename, contentType string, data []byte) (string, error)
}

// BatchLog records ingestion batches and finds earlier ingestions of the
// same file.
type BatchLog interface {
	RecordBatch(ctx context.Context, batch *domain.IngestBatch, contentType string) error
	FindBatchByFileHash(ctx context.Context, fileHash string) (string, bool, error)
}

// Ledger is the write side of the ledger store used by Commit.
type Ledger interface {
	AppendTransactions(ctx context.Context, entries []ledger.Entry) (ledger.BatchResult, error)
}
