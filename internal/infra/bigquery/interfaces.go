package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
)

// BatchLog records ingestion batches.
type BatchLog interface {
	RecordBatch(ctx context.Context, batch *domain.IngestBatch, contentType string) error
	FindBatchByFileHash(ctx context.Context, fileHash string) (string, bool, error)
}

// BatchRepository is the BigQuery implementation of BatchLog. It holds a
// shared client for all operations.
type BatchRepository struct {
	client *bigquery.Client
	ref    TableRef
	now    func() time.Time
}

var _ BatchLog = (*BatchRepository)(nil)

// NewBatchRepository creates a repository writing to ref. Empty dataset and
// table names fall back to the defaults.
func NewBatchRepository(ctx context.Context, ref TableRef) (*BatchRepository, error) {
	if ref.Project == "" {
		return nil, fmt.Errorf("NewBatchRepository: project is required")
	}
	if ref.Dataset == "" {
		ref.Dataset = DefaultDataset
	}
	if ref.Table == "" {
		ref.Table = DefaultTable
	}
	client, err := bigquery.NewClient(ctx, ref.Project)
	if err != nil {
		return nil, fmt.Errorf("NewBatchRepository: creating client: %w", err)
	}
	return &BatchRepository{client: client, ref: ref, now: time.Now}, nil
}

// Close closes the BigQuery client connection.
func (r *BatchRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// RecordBatch inserts a log row for batch.
func (r *BatchRepository) RecordBatch(ctx context.Context, batch *domain.IngestBatch, contentType string) error {
	row, err := NewBatchRow(batch, contentType, r.now())
	if err != nil {
		return err
	}
	if err := InsertBatchWithClient(ctx, r.client, r.ref, row); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Debug().Str("batch_id", row.BatchID).Msg("recorded batch")
	return nil
}

// FindBatchByFileHash returns the ID of the latest batch for fileHash.
func (r *BatchRepository) FindBatchByFileHash(ctx context.Context, fileHash string) (string, bool, error) {
	row, err := FindBatchByFileHashWithClient(ctx, r.client, r.ref, fileHash)
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, nil
	}
	return row.BatchID, true, nil
}

// EnsureTable creates the batch log table when missing.
func (r *BatchRepository) EnsureTable(ctx context.Context) (bool, error) {
	return EnsureTableWithClient(ctx, r.client, r.ref)
}
