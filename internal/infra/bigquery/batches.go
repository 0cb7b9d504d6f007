// Package bigquery keeps a log of ingested statement batches in BigQuery so
// repeated uploads of the same file can be recognized.
package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// DefaultDataset and DefaultTable name the batch log location.
const (
	DefaultDataset = "finance"
	DefaultTable   = "ingest_batches"
)

// BatchRow is one ingested batch in the batch log table.
type BatchRow struct {
	BatchID          string            `bigquery:"batch_id"`
	FileHash         string            `bigquery:"file_hash"`
	Filename         string            `bigquery:"filename"`
	Format           string            `bigquery:"format"`
	ContentType      string            `bigquery:"content_type"`
	ArchiveURI       string            `bigquery:"archive_uri"`
	PreviousBatchID  string            `bigquery:"previous_batch_id"`
	RawRowCount      int64             `bigquery:"raw_row_count"`
	TransactionCount int64             `bigquery:"transaction_count"`
	NeedsReviewCount int64             `bigquery:"needs_review_count"`
	FirstDate        bigquery.NullDate `bigquery:"first_date"`
	LastDate         bigquery.NullDate `bigquery:"last_date"`
	Metadata         bigquery.NullJSON `bigquery:"metadata"`
	IngestedTS       time.Time         `bigquery:"ingested_ts"`

	// InsertID makes streaming retries idempotent. Not stored.
	InsertID string `bigquery:"-"`
}

// NewBatchRow builds the log row for batch.
func NewBatchRow(batch *domain.IngestBatch, contentType string, now time.Time) (*BatchRow, error) {
	row := &BatchRow{
		BatchID:          batch.BatchID,
		FileHash:         batch.FileHash,
		Filename:         batch.Filename,
		Format:           batch.Format,
		ContentType:      contentType,
		ArchiveURI:       batch.ArchiveURI,
		PreviousBatchID:  batch.PreviousBatchID,
		RawRowCount:      int64(batch.RawRowCount),
		TransactionCount: int64(len(batch.Transactions)),
		NeedsReviewCount: int64(batch.NeedsReviewCount()),
		IngestedTS:       now.UTC(),
		InsertID:         uuid.New().String(),
	}

	for _, tx := range batch.Transactions {
		if !row.FirstDate.Valid || tx.Date.Before(row.FirstDate.Date) {
			row.FirstDate = bigquery.NullDate{Date: tx.Date, Valid: true}
		}
		if !row.LastDate.Valid || tx.Date.After(row.LastDate.Date) {
			row.LastDate = bigquery.NullDate{Date: tx.Date, Valid: true}
		}
	}

	if !batch.Metadata.IsZero() {
		b, err := json.Marshal(batch.Metadata)
		if err != nil {
			return nil, fmt.Errorf("NewBatchRow: marshaling metadata: %w", err)
		}
		row.Metadata = bigquery.NullJSON{JSONVal: string(b), Valid: true}
	}
	return row, nil
}
