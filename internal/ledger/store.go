// Package ledger persists committed transactions into a month-partitioned
// tabular store, suppressing duplicates within a partition.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-ledger/internal/domain"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/normalize"
)

// ErrNoStore is returned when a Store is used without a backing TabularStore.
var ErrNoStore = errors.New("ledger store is not configured")

// ErrInvalidAnchor is returned for list anchors that name no month.
var ErrInvalidAnchor = errors.New("invalid list anchor")

// Append statuses.
const (
	StatusAppended  = "appended"
	StatusDuplicate = "duplicate"
)

// Entry is one transaction to be written to the ledger.
type Entry struct {
	// Date defaults to today when zero.
	Date        civil.Date
	Description string
	Amount      decimal.Decimal
	// Category is coerced into the fixed list.
	Category string
	// MachinePillar is derived from Category when empty.
	MachinePillar   string
	IntegrityFilter string
	RootTrigger     string
	Notes           string
}

// AppendResult reports the outcome of appending one entry.
type AppendResult struct {
	Status    string `json:"status"`
	Partition string `json:"partition"`
	Message   string `json:"message"`
}

// BatchResult aggregates AppendResults.
type BatchResult struct {
	Appended   int            `json:"appended"`
	Duplicates int            `json:"duplicates"`
	Results    []AppendResult `json:"results"`
}

// Row is a stored ledger row. RowID is the 1-based physical row position.
type Row struct {
	RowID           int    `json:"row_id"`
	Date            string `json:"date"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Category        string `json:"category"`
	MachinePillar   string `json:"machine_pillar"`
	IntegrityFilter string `json:"integrity_filter"`
	RootTrigger     string `json:"root_trigger"`
	Notes           string `json:"notes"`
}

// Listing is the content of one partition.
type Listing struct {
	Partition    string `json:"partition"`
	Count        int    `json:"count"`
	Schema       int    `json:"schema"`
	Transactions []Row  `json:"transactions"`
}

// Anchor selects the month to list. Date wins over Month/Year; missing
// Month or Year default to the current ones.
type Anchor struct {
	Date  string
	Month int
	Year  int
}

func (a Anchor) resolve(now time.Time) (civil.Date, error) {
	if a.Date != "" {
		d, ok := normalize.Date(a.Date)
		if !ok {
			return civil.Date{}, fmt.Errorf("%w: unparsable date %q", ErrInvalidAnchor, a.Date)
		}
		return d, nil
	}
	today := civil.DateOf(now)
	if a.Month == 0 && a.Year == 0 {
		return today, nil
	}
	d := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
	if a.Year != 0 {
		d.Year = a.Year
	}
	if a.Month != 0 {
		if a.Month < 1 || a.Month > 12 {
			return civil.Date{}, fmt.Errorf("%w: month %d", ErrInvalidAnchor, a.Month)
		}
		d.Month = time.Month(a.Month)
	}
	return d, nil
}

// Option configures a Store.
type Option func(*Store)

// WithPartitionStyle selects ISO or localized partition names.
func WithPartitionStyle(style PartitionStyle) Option {
	return func(s *Store) { s.style = style }
}

// WithValidation toggles value validation on new partitions.
func WithValidation(enabled bool) Option {
	return func(s *Store) { s.validation = enabled }
}

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store writes and reads ledger rows through a TabularStore.
// Appends to the same partition are serialized within the process.
type Store struct {
	tab        TabularStore
	style      PartitionStyle
	validation bool
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store on top of tab.
func NewStore(tab TabularStore, opts ...Option) *Store {
	s := &Store{
		tab:        tab,
		style:      StyleISO,
		validation: true,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock(partition string) func() {
	s.mu.Lock()
	m, ok := s.locks[partition]
	if !ok {
		m = &sync.Mutex{}
		s.locks[partition] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// PartitionFor returns the partition name for d given the store's locale.
func (s *Store) PartitionFor(ctx context.Context, d civil.Date) (string, error) {
	if s.tab == nil {
		return "", ErrNoStore
	}
	props, err := s.tab.Properties(ctx)
	if err != nil {
		return "", fmt.Errorf("PartitionFor: reading store properties: %w", err)
	}
	return PartitionLabel(s.style, props.Locale, d), nil
}

// EnsurePartition creates the named partition with its header row if it is
// missing. It reports whether the partition was created.
func (s *Store) EnsurePartition(ctx context.Context, partition string) (bool, error) {
	if s.tab == nil {
		return false, ErrNoStore
	}
	props, err := s.tab.Properties(ctx)
	if err != nil {
		return false, fmt.Errorf("EnsurePartition: reading store properties: %w", err)
	}
	return s.ensure(ctx, partition, props)
}

func (s *Store) ensure(ctx context.Context, partition string, props Properties) (bool, error) {
	if props.HasPartition(partition) {
		return false, nil
	}
	log := logger.FromContext(ctx)

	id, err := s.tab.CreatePartition(ctx, partition)
	if err != nil {
		return false, fmt.Errorf("EnsurePartition: creating partition %q: %w", partition, err)
	}
	header := append([]string(nil), Headers...)
	if err := s.tab.UpdateRange(ctx, partition, "A1", [][]string{header}); err != nil {
		return false, fmt.Errorf("EnsurePartition: writing header to %q: %w", partition, err)
	}
	log.Info().Str("partition", partition).Msg("created ledger partition")

	v, ok := s.tab.(Validator)
	if !s.validation || !ok {
		return true, nil
	}
	rules := []struct {
		column  int
		allowed []string
	}{
		{colPillar, domain.MachinePillars()},
		{colIntegrity, domain.IntegrityFilters()},
		{colTrigger, domain.RootTriggers()},
	}
	for _, r := range rules {
		if err := v.SetValidation(ctx, id, r.column, r.allowed); err != nil {
			log.Warn().Err(err).Str("partition", partition).Int("column", r.column).
				Msg("failed to set column validation")
		}
	}
	return true, nil
}

// IsDuplicate reports whether partition already holds a row with the same
// date, an equivalent amount and the same description ignoring case and
// whitespace.
func (s *Store) IsDuplicate(ctx context.Context, partition string, date civil.Date, amount decimal.Decimal, description string) (bool, error) {
	if s.tab == nil {
		return false, ErrNoStore
	}
	rows, err := s.tab.GetRange(ctx, partition, readRange)
	if err != nil {
		return false, fmt.Errorf("IsDuplicate: reading %q: %w", partition, err)
	}
	wantDate := date.String()
	wantAmount := normalize.FormatAmount(amount)
	wantDesc := normalize.Key(description)

	for i, row := range rows {
		if i == 0 && DetectSchema(row) != 0 {
			continue
		}
		if normalize.DateOrRaw(cellDate(cell(row, colDate))) != wantDate {
			continue
		}
		if normalize.Key(cell(row, colDescription)) != wantDesc {
			continue
		}
		if normalize.EquivalentAmount(cell(row, colAmount), wantAmount) {
			return true, nil
		}
	}
	return false, nil
}

// AppendTransaction writes e to its month partition unless an equivalent row
// is already there. A partition created by this call is not checked.
func (s *Store) AppendTransaction(ctx context.Context, e Entry) (AppendResult, error) {
	return s.appendEntry(ctx, e, nil)
}

// appendEntry skips the duplicate check for partitions this call creates and
// for partitions listed in fresh, recording newly created ones there.
func (s *Store) appendEntry(ctx context.Context, e Entry, fresh map[string]bool) (AppendResult, error) {
	if s.tab == nil {
		return AppendResult{}, ErrNoStore
	}
	e = s.complete(e)

	props, err := s.tab.Properties(ctx)
	if err != nil {
		return AppendResult{}, fmt.Errorf("AppendTransaction: reading store properties: %w", err)
	}
	partition := PartitionLabel(s.style, props.Locale, e.Date)

	unlock := s.lock(partition)
	defer unlock()

	created, err := s.ensure(ctx, partition, props)
	if err != nil {
		return AppendResult{}, fmt.Errorf("AppendTransaction: %w", err)
	}
	if created && fresh != nil {
		fresh[partition] = true
	}
	if !created && !fresh[partition] {
		dup, err := s.IsDuplicate(ctx, partition, e.Date, e.Amount, e.Description)
		if err != nil {
			return AppendResult{}, fmt.Errorf("AppendTransaction: %w", err)
		}
		if dup {
			log := logger.FromContext(ctx)
			log.Debug().Str("partition", partition).
				Str("description", e.Description).Msg("duplicate skipped")
			return AppendResult{
				Status:    StatusDuplicate,
				Partition: partition,
				Message:   fmt.Sprintf("Duplicate skipped in '%s' partition.", partition),
			}, nil
		}
	}

	if err := s.tab.AppendRows(ctx, partition, "A1", [][]string{entryRow(e)}); err != nil {
		return AppendResult{}, fmt.Errorf("AppendTransaction: appending to %q: %w", partition, err)
	}
	return AppendResult{
		Status:    StatusAppended,
		Partition: partition,
		Message:   fmt.Sprintf("Logged to '%s' partition.", partition),
	}, nil
}

// AppendTransactions appends entries in order. Partitions the batch creates
// take every entry aimed at them without duplicate checks. A failure stops
// the batch and is returned together with the results gathered so far.
func (s *Store) AppendTransactions(ctx context.Context, entries []Entry) (BatchResult, error) {
	res := BatchResult{Results: make([]AppendResult, 0, len(entries))}
	fresh := make(map[string]bool)
	for i, e := range entries {
		r, err := s.appendEntry(ctx, e, fresh)
		if err != nil {
			return res, fmt.Errorf("AppendTransactions: entry %d: %w", i, err)
		}
		switch r.Status {
		case StatusAppended:
			res.Appended++
		case StatusDuplicate:
			res.Duplicates++
		}
		res.Results = append(res.Results, r)
	}
	return res, nil
}

// ListTransactions returns the rows of the partition selected by anchor.
// A missing partition yields an empty listing.
func (s *Store) ListTransactions(ctx context.Context, anchor Anchor) (Listing, error) {
	if s.tab == nil {
		return Listing{}, ErrNoStore
	}
	d, err := anchor.resolve(s.now())
	if err != nil {
		return Listing{}, fmt.Errorf("ListTransactions: %w", err)
	}
	props, err := s.tab.Properties(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("ListTransactions: reading store properties: %w", err)
	}
	partition := PartitionLabel(s.style, props.Locale, d)
	listing := Listing{Partition: partition, Transactions: []Row{}}
	if !props.HasPartition(partition) {
		return listing, nil
	}

	rows, err := s.tab.GetRange(ctx, partition, readRange)
	if err != nil {
		return Listing{}, fmt.Errorf("ListTransactions: reading %q: %w", partition, err)
	}
	width := len(Headers)
	for i, row := range rows {
		if i == 0 {
			if schema := DetectSchema(row); schema != 0 {
				listing.Schema = schema
				width = schema
				continue
			}
		}
		r := Row{
			RowID:       i + 1,
			Date:        cellDate(cell(row, colDate)),
			Description: cell(row, colDescription),
			Amount:      cell(row, colAmount),
			Category:    cell(row, colCategory),
		}
		if r.Date == "" && r.Description == "" && r.Amount == "" && r.Category == "" {
			continue
		}
		if width == len(Headers) {
			r.MachinePillar = cell(row, colPillar)
			r.IntegrityFilter = cell(row, colIntegrity)
			r.RootTrigger = cell(row, colTrigger)
			r.Notes = cell(row, colNotes)
		}
		listing.Transactions = append(listing.Transactions, r)
	}
	listing.Count = len(listing.Transactions)
	return listing, nil
}

func (s *Store) complete(e Entry) Entry {
	if e.Date.IsZero() {
		e.Date = civil.DateOf(s.now())
	}
	e.Description = normalize.Text(e.Description)
	if e.Description == "" {
		e.Description = "Unknown"
	}
	e.Category = domain.CoerceCategory(e.Category)
	if e.MachinePillar == "" {
		e.MachinePillar = domain.DerivePillar(e.Category)
	}
	return e
}

func entryRow(e Entry) []string {
	return []string{
		e.Date.String(),
		e.Description,
		normalize.FormatAmount(e.Amount),
		e.Category,
		e.MachinePillar,
		e.IntegrityFilter,
		e.RootTrigger,
		e.Notes,
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
