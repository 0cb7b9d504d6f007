package domain

import (
	"encoding/json"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// NormalizedTransaction is one accepted statement row after date and amount
// normalization and category suggestion. Rows whose date or amount cannot be
// parsed never become a NormalizedTransaction.
type NormalizedTransaction struct {
	Date        civil.Date      // always a valid calendar date
	Amount      decimal.Decimal // 2 fractional digits, negative = outflow
	Description string          // whitespace-collapsed, never empty
	Currency    string          // 3-letter code, inherited from file metadata when absent

	MerchantRaw        string
	MerchantNormalized string

	CategorySuggested string // member of the fixed set or Uncategorized
	CategorySource    string // oracle, keyword, income or fallback
	MachinePillar     string
	IntegrityFilter   string
	NeedsReview       bool // true iff CategorySuggested is Uncategorized

	SourceRow int // 1-based position in the source file
}

type transactionJSON struct {
	Date               string `json:"date"`
	Amount             string `json:"amount"`
	Description        string `json:"description"`
	Currency           string `json:"currency,omitempty"`
	MerchantRaw        string `json:"merchant_raw"`
	MerchantNormalized string `json:"merchant_normalized"`
	CategorySuggested  string `json:"category_suggested"`
	CategorySource     string `json:"category_source,omitempty"`
	MachinePillar      string `json:"machine_pillar"`
	IntegrityFilter    string `json:"integrity_filter"`
	NeedsReview        bool   `json:"needs_review"`
	SourceRow          int    `json:"source_row"`
}

// MarshalJSON renders the date as YYYY-MM-DD and the amount with exactly two
// fractional digits.
func (t NormalizedTransaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		Date:               t.Date.String(),
		Amount:             t.Amount.StringFixed(2),
		Description:        t.Description,
		Currency:           t.Currency,
		MerchantRaw:        t.MerchantRaw,
		MerchantNormalized: t.MerchantNormalized,
		CategorySuggested:  t.CategorySuggested,
		CategorySource:     t.CategorySource,
		MachinePillar:      t.MachinePillar,
		IntegrityFilter:    t.IntegrityFilter,
		NeedsReview:        t.NeedsReview,
		SourceRow:          t.SourceRow,
	})
}

// Metadata holds file-level fields found in statement preambles. Every field
// is optional.
type Metadata struct {
	AccountHolder   string `json:"account_holder,omitempty"`
	AccountType     string `json:"account_type,omitempty"`
	AccountNumber   string `json:"account_number,omitempty"`
	ReportingPeriod string `json:"reporting_period,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// IsZero reports whether no metadata field was found.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// IngestBatch is the result of one ingestion call. It is handed to the
// caller for review and is not persisted to the ledger as such.
type IngestBatch struct {
	BatchID      string                  `json:"batch_id"`
	FileHash     string                  `json:"file_hash"`
	Filename     string                  `json:"filename,omitempty"`
	Format       string                  `json:"format"`
	Metadata     Metadata                `json:"metadata"`
	Transactions []NormalizedTransaction `json:"transactions"`

	// RawRowCount is the number of rows the parser produced before
	// normalization dropped the unparsable ones.
	RawRowCount int `json:"raw_row_count"`

	ArchiveURI      string `json:"archive_uri,omitempty"`
	PreviousBatchID string `json:"previous_batch_id,omitempty"`
}

// ExcludedCount is the number of raw rows dropped during normalization.
func (b *IngestBatch) ExcludedCount() int {
	return b.RawRowCount - len(b.Transactions)
}

// NeedsReviewCount counts transactions still carrying the sentinel category.
func (b *IngestBatch) NeedsReviewCount() int {
	n := 0
	for _, tx := range b.Transactions {
		if tx.NeedsReview {
			n++
		}
	}
	return n
}
