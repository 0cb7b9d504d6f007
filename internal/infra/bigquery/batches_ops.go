package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// TableRef locates the batch log table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (t TableRef) qualified() string {
	return fmt.Sprintf("`%s.%s.%s`", t.Project, t.Dataset, t.Table)
}

// InsertBatchWithClient streams row into the batch log table.
func InsertBatchWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, row *BatchRow) error {
	inserter := client.Dataset(ref.Dataset).Table(ref.Table).Inserter()
	saver := &bigquery.StructSaver{Struct: row, InsertID: row.InsertID}
	if err := inserter.Put(ctx, saver); err != nil {
		return fmt.Errorf("InsertBatchWithClient: inserting row: %w", err)
	}
	return nil
}

// FindBatchByFileHashWithClient returns the most recent batch for fileHash.
// It returns nil when the file was never ingested.
func FindBatchByFileHashWithClient(ctx context.Context, client *bigquery.Client, ref TableRef, fileHash string) (*BatchRow, error) {
	query := fmt.Sprintf(`
		SELECT
			batch_id,
			file_hash,
			filename,
			format,
			content_type,
			archive_uri,
			previous_batch_id,
			raw_row_count,
			transaction_count,
			needs_review_count,
			first_date,
			last_date,
			metadata,
			ingested_ts
		FROM %s
		WHERE file_hash = @file_hash
		ORDER BY ingested_ts DESC
		LIMIT 1
	`, ref.qualified())

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "file_hash", Value: fileHash},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindBatchByFileHashWithClient: reading query: %w", err)
	}

	var row BatchRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindBatchByFileHashWithClient: reading row: %w", err)
	}
	return &row, nil
}

// EnsureTableWithClient creates the dataset and table when missing. It
// reports whether the table was created.
func EnsureTableWithClient(ctx context.Context, client *bigquery.Client, ref TableRef) (bool, error) {
	ds := client.Dataset(ref.Dataset)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return false, fmt.Errorf("EnsureTableWithClient: reading dataset: %w", err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{}); err != nil {
			return false, fmt.Errorf("EnsureTableWithClient: creating dataset: %w", err)
		}
	}

	table := ds.Table(ref.Table)
	if _, err := table.Metadata(ctx); err == nil {
		return false, nil
	} else if !isNotFound(err) {
		return false, fmt.Errorf("EnsureTableWithClient: reading table: %w", err)
	}

	schema, err := bigquery.InferSchema(BatchRow{})
	if err != nil {
		return false, fmt.Errorf("EnsureTableWithClient: inferring schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.MonthPartitioningType,
			Field: "ingested_ts",
		},
	}
	if err := table.Create(ctx, meta); err != nil {
		return false, fmt.Errorf("EnsureTableWithClient: creating table: %w", err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
