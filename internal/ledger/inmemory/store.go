// Package inmemory provides a TabularStore held in process memory. It follows
// the value-trimming behavior of spreadsheet APIs and supports failure
// injection for tests.
package inmemory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dvloznov/statement-ledger/internal/ledger"
)

// Operation names used by Calls and FailNext.
const (
	OpProperties      = "properties"
	OpGetRange        = "get_range"
	OpUpdateRange     = "update_range"
	OpAppendRows      = "append_rows"
	OpCreatePartition = "create_partition"
	OpSetValidation   = "set_validation"
)

type partition struct {
	id   int64
	rows [][]string
}

// Validation records one SetValidation call.
type Validation struct {
	PartitionID int64
	Column      int
	Allowed     []string
}

// Store is an in-memory TabularStore and Validator. It is safe for
// concurrent use.
type Store struct {
	mu          sync.RWMutex
	locale      string
	order       []string
	partitions  map[string]*partition
	nextID      int64
	validations []Validation
	calls       map[string]int
	failures    map[string]error
}

var (
	_ ledger.TabularStore = (*Store)(nil)
	_ ledger.Validator    = (*Store)(nil)
)

// NewStore creates an empty store reporting the given locale.
func NewStore(locale string) *Store {
	return &Store{
		locale:     locale,
		partitions: make(map[string]*partition),
		nextID:     1,
		calls:      make(map[string]int),
		failures:   make(map[string]error),
	}
}

// Seed creates title with the given rows, replacing any existing content.
func (s *Store) Seed(title string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[title]
	if !ok {
		p = s.addLocked(title)
	}
	p.rows = copyRows(rows)
}

// Rows returns a copy of the raw rows of title.
func (s *Store) Rows(title string) [][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[title]
	if !ok {
		return nil
	}
	return copyRows(p.rows)
}

// Validations returns the recorded SetValidation calls.
func (s *Store) Validations() []Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Validation(nil), s.validations...)
}

// Calls returns how often op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// FailNext makes the next call of op return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// Properties implements ledger.TabularStore.
func (s *Store) Properties(ctx context.Context) (ledger.Properties, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(OpProperties); err != nil {
		return ledger.Properties{}, err
	}
	return ledger.Properties{
		Locale:     s.locale,
		Partitions: append([]string(nil), s.order...),
	}, nil
}

// GetRange implements ledger.TabularStore. Only column spans ("A:H") and
// single-cell anchors ("A1") are understood; both read to the last row.
func (s *Store) GetRange(ctx context.Context, title, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(OpGetRange); err != nil {
		return nil, err
	}
	p, ok := s.partitions[title]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrPartitionNotFound, title)
	}
	r, err := parseRange(rng)
	if err != nil {
		return nil, err
	}

	var out [][]string
	for i := r.row; i < len(p.rows); i++ {
		row := p.rows[i]
		var cells []string
		for c := r.firstCol; c <= r.lastCol && c < len(row); c++ {
			cells = append(cells, row[c])
		}
		out = append(out, trimRow(cells))
	}
	// Trailing empty rows are not returned.
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// UpdateRange implements ledger.TabularStore.
func (s *Store) UpdateRange(ctx context.Context, title, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(OpUpdateRange); err != nil {
		return err
	}
	p, ok := s.partitions[title]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrPartitionNotFound, title)
	}
	r, err := parseRange(rng)
	if err != nil {
		return err
	}
	for i, row := range rows {
		at := r.row + i
		for len(p.rows) <= at {
			p.rows = append(p.rows, nil)
		}
		dst := p.rows[at]
		for len(dst) < r.firstCol+len(row) {
			dst = append(dst, "")
		}
		copy(dst[r.firstCol:], row)
		p.rows[at] = dst
	}
	return nil
}

// AppendRows implements ledger.TabularStore. Rows go after the last
// non-empty row of the partition.
func (s *Store) AppendRows(ctx context.Context, title, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(OpAppendRows); err != nil {
		return err
	}
	p, ok := s.partitions[title]
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrPartitionNotFound, title)
	}
	end := len(p.rows)
	for end > 0 && len(trimRow(p.rows[end-1])) == 0 {
		end--
	}
	p.rows = append(p.rows[:end], copyRows(rows)...)
	return nil
}

// CreatePartition implements ledger.TabularStore.
func (s *Store) CreatePartition(ctx context.Context, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(OpCreatePartition); err != nil {
		return 0, err
	}
	if _, ok := s.partitions[title]; ok {
		return 0, fmt.Errorf("partition %q already exists", title)
	}
	return s.addLocked(title).id, nil
}

// SetValidation implements ledger.Validator.
func (s *Store) SetValidation(ctx context.Context, partitionID int64, column int, allowed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enter(OpSetValidation); err != nil {
		return err
	}
	s.validations = append(s.validations, Validation{
		PartitionID: partitionID,
		Column:      column,
		Allowed:     append([]string(nil), allowed...),
	})
	return nil
}

func (s *Store) addLocked(title string) *partition {
	p := &partition{id: s.nextID}
	s.nextID++
	s.partitions[title] = p
	s.order = append(s.order, title)
	return p
}

type cellRange struct {
	row      int
	firstCol int
	lastCol  int
}

// parseRange understands "A1", "C5" and "A:H" style ranges.
func parseRange(rng string) (cellRange, error) {
	if from, to, ok := strings.Cut(rng, ":"); ok {
		first, err := column(from)
		if err != nil {
			return cellRange{}, err
		}
		last, err := column(to)
		if err != nil {
			return cellRange{}, err
		}
		return cellRange{firstCol: first, lastCol: last}, nil
	}

	i := strings.IndexFunc(rng, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return cellRange{}, fmt.Errorf("unsupported range %q", rng)
	}
	col, err := column(rng[:i])
	if err != nil {
		return cellRange{}, err
	}
	row, err := strconv.Atoi(rng[i:])
	if err != nil || row < 1 {
		return cellRange{}, fmt.Errorf("unsupported range %q", rng)
	}
	return cellRange{row: row - 1, firstCol: col, lastCol: 1<<31 - 1}, nil
}

func column(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

func trimRow(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	if end == 0 {
		return []string{}
	}
	return append([]string(nil), row[:end]...)
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
