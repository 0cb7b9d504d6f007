package pipeline

import (
	"errors"

	"github.com/dvloznov/statement-ledger/internal/ingest"
)

var (
	// ErrEmptyInput is returned for an upload without content.
	ErrEmptyInput = errors.New("uploaded file is empty")
	// ErrNoApprovals is returned when Commit receives nothing to write.
	ErrNoApprovals = errors.New("no transactions provided")
	// ErrInvalidApproval is returned when an approval has an unparsable
	// date or amount. No rows are written in that case.
	ErrInvalidApproval = errors.New("invalid approval")
)

// RejectionError is a total ingestion failure. Error returns a reason fit
// for showing to the user; the cause is available through Unwrap.
type RejectionError struct {
	Reason string
	Err    error
}

func (e *RejectionError) Error() string { return e.Reason }

func (e *RejectionError) Unwrap() error { return e.Err }

func reject(err error) error {
	var reason string
	switch {
	case errors.Is(err, ErrEmptyInput):
		reason = "Uploaded file is empty"
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		reason = "Unsupported statement file type"
	case errors.Is(err, ingest.ErrNoRows):
		reason = "No transactions found in statement file"
	default:
		reason = "Failed to parse statement file"
	}
	return &RejectionError{Reason: reason, Err: err}
}
