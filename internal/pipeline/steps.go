package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/ingest"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Request IngestRequest
	Format  ingest.Format
	Parsed  *ingest.Result
	Batch   *domain.IngestBatch
}

// Step 1: IdentifyStep rejects empty input, detects the format and assigns
// the batch identifiers.
type IdentifyStep struct {
	Now func() time.Time
}

func (s *IdentifyStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Request.Data) == 0 {
		return ErrEmptyInput
	}
	state.Format = ingest.DetectFormat(state.Request.Filename, state.Request.ContentType)

	sum := sha256.Sum256(state.Request.Data)
	hash := hex.EncodeToString(sum[:])
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	state.Batch = &domain.IngestBatch{
		BatchID:      fmt.Sprintf("%s-%s", now().UTC().Format("20060102150405"), hash[:8]),
		FileHash:     hash,
		Filename:     state.Request.Filename,
		Format:       string(state.Format),
		Transactions: []domain.NormalizedTransaction{},
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("filename", state.Request.Filename).
		Str("content_type", state.Request.ContentType).
		Str("format", string(state.Format)).
		Str("batch_id", state.Batch.BatchID).
		Msg("parsing statement")
	return nil
}

// Step 2: ParseStep runs the registered parser for the detected format.
type ParseStep struct {
	Registry *ingest.Registry
}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	parser, err := s.Registry.Get(state.Format)
	if err != nil {
		return fmt.Errorf("ParseStep: %s: %w", state.Format, err)
	}
	res, err := parser.Parse(ctx, state.Request.Data)
	if err != nil {
		return fmt.Errorf("ParseStep: parsing %s: %w", state.Format, err)
	}
	if len(res.Rows) == 0 {
		return ingest.ErrNoRows
	}
	state.Parsed = res
	state.Batch.Metadata = res.Metadata
	state.Batch.RawRowCount = len(res.Rows)

	log := logger.FromContext(ctx)
	log.Info().
		Int("raw_rows", len(res.Rows)).
		Bool("header_found", res.HeaderFound).
		Msg("raw rows extracted")
	return nil
}

// Step 3: NormalizeStep turns raw rows into normalized transactions,
// dropping rows whose date or amount does not parse.
type NormalizeStep struct {
	Classifier Classifier
}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	currency := state.Batch.Metadata.Currency

	for _, row := range state.Parsed.Rows {
		date, ok := normalize.Date(ingest.Value(row.Date))
		if !ok {
			log.Debug().Int("source_row", row.SourceRow).Str("reason", "invalid date").
				Str("value", ingest.Value(row.Date)).Msg("dropping row")
			continue
		}
		amount, ok := normalize.Amount(ingest.Value(row.Amount))
		if !ok {
			log.Debug().Int("source_row", row.SourceRow).Str("reason", "invalid amount").
				Str("value", ingest.Value(row.Amount)).Msg("dropping row")
			continue
		}
		description := normalize.Text(ingest.Value(row.Description))
		if description == "" {
			description = "Unknown"
		}
		rowCurrency := normalize.Text(ingest.Value(row.Currency))
		if rowCurrency == "" {
			rowCurrency = currency
		}

		suggestion := s.Classifier.Suggest(ctx, description, amount)
		state.Batch.Transactions = append(state.Batch.Transactions, domain.NormalizedTransaction{
			Date:               date,
			Amount:             amount,
			Description:        description,
			Currency:           rowCurrency,
			MerchantRaw:        description,
			MerchantNormalized: normalize.Merchant(description),
			CategorySuggested:  suggestion.Category,
			CategorySource:     string(suggestion.Source),
			MachinePillar:      suggestion.Pillar,
			IntegrityFilter:    domain.IntegrityPlanned,
			NeedsReview:        suggestion.NeedsReview(),
			SourceRow:          row.SourceRow,
		})
	}

	log.Info().
		Int("transactions", len(state.Batch.Transactions)).
		Int("excluded", state.Batch.ExcludedCount()).
		Msg("statement normalized")
	return nil
}

// Step 4: ArchiveStep keeps a copy of the raw file. Failures are logged and
// do not stop the ingestion.
type ArchiveStep struct {
	Archiver Archiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.Archive(ctx, state.Batch.BatchID, state.Request.Filename,
		state.Request.ContentType, state.Request.Data)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("batch_id", state.Batch.BatchID).
			Msg("failed to archive statement")
		return nil
	}
	state.Batch.ArchiveURI = uri
	return nil
}

// Step 5: RecordBatchStep writes the batch to the batch log, linking it to
// an earlier ingestion of the same file. Failures are logged only.
type RecordBatchStep struct {
	Log BatchLog
}

func (s *RecordBatchStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Log == nil {
		return nil
	}
	log := logger.FromContext(ctx)

	prev, found, err := s.Log.FindBatchByFileHash(ctx, state.Batch.FileHash)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("failed to look up earlier batches")
	case found:
		state.Batch.PreviousBatchID = prev
		log.Info().Str("previous_batch_id", prev).Msg("statement was ingested before")
	}

	if err := s.Log.RecordBatch(ctx, state.Batch, state.Request.ContentType); err != nil {
		log.Warn().Err(err).Str("batch_id", state.Batch.BatchID).Msg("failed to record batch")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
