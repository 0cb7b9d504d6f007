package ledger

import (
	"context"
	"errors"
)

// ErrPartitionNotFound is returned by tabular stores for unknown partitions.
var ErrPartitionNotFound = errors.New("partition not found")

// Properties describes the spreadsheet-like store backing the ledger.
type Properties struct {
	Locale     string
	Partitions []string
}

// HasPartition reports whether title is one of the existing partitions.
func (p Properties) HasPartition(title string) bool {
	for _, t := range p.Partitions {
		if t == title {
			return true
		}
	}
	return false
}

// TabularStore is the minimal set of operations the ledger needs from its
// backing store. Ranges are A1 notation relative to a partition, e.g. "A1"
// or "A:H". Cells are exchanged as text.
type TabularStore interface {
	Properties(ctx context.Context) (Properties, error)
	GetRange(ctx context.Context, partition, rng string) ([][]string, error)
	UpdateRange(ctx context.Context, partition, rng string, rows [][]string) error
	AppendRows(ctx context.Context, partition, rng string, rows [][]string) error
	// CreatePartition adds a partition and returns its numeric handle.
	CreatePartition(ctx context.Context, title string) (int64, error)
}

// Validator is an optional TabularStore capability restricting a column of
// a partition (below the header) to a list of values.
type Validator interface {
	SetValidation(ctx context.Context, partitionID int64, column int, allowed []string) error
}
