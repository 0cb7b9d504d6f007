// Package pipeline turns uploaded statement files into reviewable batches
// and commits approved transactions to the ledger.
package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/ingest"
)

// IngestRequest is one uploaded statement.
type IngestRequest struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithArchiver stores every ingested file.
func WithArchiver(a Archiver) Option {
	return func(i *Ingestor) { i.archiver = a }
}

// WithBatchLog records every ingested batch.
func WithBatchLog(l BatchLog) Option {
	return func(i *Ingestor) { i.batchLog = l }
}

// WithClock overrides the time used for batch IDs.
func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) { i.now = now }
}

// Ingestor parses statements into IngestBatches.
type Ingestor struct {
	registry   *ingest.Registry
	classifier Classifier
	archiver   Archiver
	batchLog   BatchLog
	now        func() time.Time
}

// NewIngestor creates an Ingestor using registry for parsing and classifier
// for category suggestions.
func NewIngestor(registry *ingest.Registry, classifier Classifier, opts ...Option) *Ingestor {
	i := &Ingestor{
		registry:   registry,
		classifier: classifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Ingestor) pipeline() *Pipeline {
	// Archive and batch log run only for files that produced rows.
	return NewPipeline(
		&IdentifyStep{Now: i.now},
		&ParseStep{Registry: i.registry},
		&NormalizeStep{Classifier: i.classifier},
		&ArchiveStep{Archiver: i.archiver},
		&RecordBatchStep{Log: i.batchLog},
	)
}

// Ingest parses req into a batch. Total failures come back as a
// *RejectionError; rows that fail normalization are dropped silently.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*domain.IngestBatch, error) {
	state := &PipelineState{Request: req}
	if err := i.pipeline().Execute(ctx, state); err != nil {
		return nil, reject(err)
	}
	return state.Batch, nil
}
