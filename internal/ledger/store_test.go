package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-ledger/internal/ledger"
	"github.com/dvloznov/statement-ledger/internal/ledger/inmemory"
)

func fixedClock() time.Time {
	return time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func coffee() ledger.Entry {
	return ledger.Entry{
		Date:        date(2024, time.January, 1),
		Description: "Coffee Shop",
		Amount:      decimal.RequireFromString("-4.50"),
		Category:    "Dining",
	}
}

func newStore(t *testing.T, tab *inmemory.Store, opts ...ledger.Option) *ledger.Store {
	t.Helper()
	opts = append([]ledger.Option{ledger.WithClock(fixedClock)}, opts...)
	return ledger.NewStore(tab, opts...)
}

func TestEnsurePartition(t *testing.T) {
	ctx := context.Background()
	tab := inmemory.NewStore("en_US")
	s := newStore(t, tab)

	created, err := s.EnsurePartition(ctx, "2024-01")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsurePartition(ctx, "2024-01")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, [][]string{ledger.Headers}, tab.Rows("2024-01"))
	assert.Equal(t, 1, tab.Calls(inmemory.OpCreatePartition))

	validations := tab.Validations()
	require.Len(t, validations, 3)
	assert.Equal(t, []int{4, 5, 6}, []int{validations[0].Column, validations[1].Column, validations[2].Column})
}

func TestEnsurePartition_ValidationDisabled(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	s := newStore(t, tab, ledger.WithValidation(false))

	_, err := s.EnsurePartition(context.Background(), "2024-01")
	require.NoError(t, err)
	assert.Empty(t, tab.Validations())
}

func TestEnsurePartition_ValidationFailureIsNotFatal(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.FailNext(inmemory.OpSetValidation, errors.New("quota"))
	s := newStore(t, tab)

	created, err := s.EnsurePartition(context.Background(), "2024-01")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIsDuplicate(t *testing.T) {
	ctx := context.Background()
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{
		ledger.Headers,
		{"2024-01-01", "Coffee  Shop", "-4.5", "Dining"},
	})
	s := newStore(t, tab)

	tests := []struct {
		name  string
		date  civil.Date
		amt   string
		desc  string
		match bool
	}{
		{"identical with varied description", date(2024, time.January, 1), "-4.50", "  coffee shop ", true},
		{"different date", date(2024, time.January, 2), "-4.50", "Coffee Shop", false},
		{"different amount", date(2024, time.January, 1), "-4.51", "Coffee Shop", false},
		{"different description", date(2024, time.January, 1), "-4.50", "Coffee Bar", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup, err := s.IsDuplicate(ctx, "2024-01", tt.date, decimal.RequireFromString(tt.amt), tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.match, dup)
		})
	}
}

func TestIsDuplicate_RegionalStoredValues(t *testing.T) {
	tab := inmemory.NewStore("sv_SE")
	tab.Seed("2024-01", [][]string{
		{"Date", "Description", "Amount", "Category"},
		{"01/01/2024", "Rent", "-1 200,50", "Rent"},
	})
	s := newStore(t, tab)

	dup, err := s.IsDuplicate(context.Background(), "2024-01", date(2024, time.January, 1),
		decimal.RequireFromString("-1200.50"), "rent")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestAppendTransaction_DuplicateInExistingPartition(t *testing.T) {
	ctx := context.Background()
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{ledger.Headers})
	s := newStore(t, tab)

	first, err := s.AppendTransaction(ctx, coffee())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusAppended, first.Status)
	assert.Equal(t, "2024-01", first.Partition)

	second, err := s.AppendTransaction(ctx, coffee())
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusDuplicate, second.Status)

	rows := tab.Rows("2024-01")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-01-01", "Coffee Shop", "-4.50", "Dining", "Wants", "", "", ""}, rows[1])
}

func TestAppendTransaction_NewPartitionSkipsDuplicateCheck(t *testing.T) {
	ctx := context.Background()
	tab := inmemory.NewStore("en_US")
	s := newStore(t, tab)

	res, err := s.AppendTransactions(ctx, []ledger.Entry{coffee()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, 0, tab.Calls(inmemory.OpGetRange))

	// The second call finds an existing partition and does check.
	_, err = s.AppendTransaction(ctx, coffee())
	require.NoError(t, err)
	assert.Equal(t, 1, tab.Calls(inmemory.OpGetRange))
}

func TestAppendTransactions_NewPartitionKeepsIdenticalRows(t *testing.T) {
	ctx := context.Background()
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-02", [][]string{ledger.Headers})
	s := newStore(t, tab)

	feb := coffee()
	feb.Date = date(2024, time.February, 1)
	res, err := s.AppendTransactions(ctx, []ledger.Entry{coffee(), coffee(), feb, feb})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Appended)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, tab.Rows("2024-01"), 3)
	assert.Len(t, tab.Rows("2024-02"), 2)
	assert.Equal(t, ledger.StatusDuplicate, res.Results[3].Status)

	// A later batch sees an existing partition and suppresses the repeat.
	res, err = s.AppendTransactions(ctx, []ledger.Entry{coffee()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, tab.Rows("2024-01"), 3)
}

func TestAppendTransaction_Defaults(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	s := newStore(t, tab)

	res, err := s.AppendTransaction(context.Background(), ledger.Entry{
		Amount:   decimal.RequireFromString("12"),
		Category: "not a category",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03", res.Partition)

	rows := tab.Rows("2024-03")
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-03-15", "Unknown", "12.00", "Uncategorized", "", "", "", ""}, rows[1])
}

func TestAppendTransaction_StoreFailure(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{ledger.Headers})
	tab.FailNext(inmemory.OpAppendRows, errors.New("network down"))
	s := newStore(t, tab)

	_, err := s.AppendTransaction(context.Background(), coffee())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
}

func TestAppendTransactions_Counts(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{ledger.Headers})
	s := newStore(t, tab)

	other := coffee()
	other.Description = "Bakery"
	res, err := s.AppendTransactions(context.Background(), []ledger.Entry{coffee(), coffee(), other})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Appended)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, res.Results, 3)
}

func TestAppendTransactions_HardFailureStopsBatch(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{ledger.Headers})
	s := newStore(t, tab)

	_, err := s.AppendTransaction(context.Background(), coffee())
	require.NoError(t, err)

	tab.FailNext(inmemory.OpGetRange, errors.New("quota"))
	res, err := s.AppendTransactions(context.Background(), []ledger.Entry{coffee(), coffee()})
	require.Error(t, err)
	assert.Equal(t, 0, res.Appended)
	assert.Empty(t, res.Results)
}

func TestAppendTransaction_ConcurrentSamePartition(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{ledger.Headers})
	s := newStore(t, tab)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendTransaction(context.Background(), coffee())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, tab.Rows("2024-01"), 2)
}

func TestListTransactions(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{
		ledger.Headers,
		{"2024-01-01", "Coffee Shop", "-4.50", "Dining", "Wants", "Planned"},
		{},
		{"2024-01-03", "Salary", "1000.00", "External Income", "", "", "", "January pay"},
	})
	s := newStore(t, tab)

	listing, err := s.ListTransactions(context.Background(), ledger.Anchor{Month: 1, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "2024-01", listing.Partition)
	assert.Equal(t, 8, listing.Schema)
	require.Equal(t, 2, listing.Count)
	assert.Equal(t, 2, listing.Transactions[0].RowID)
	assert.Equal(t, "Planned", listing.Transactions[0].IntegrityFilter)
	assert.Equal(t, 4, listing.Transactions[1].RowID)
	assert.Equal(t, "January pay", listing.Transactions[1].Notes)
}

func TestSerialStoredDates(t *testing.T) {
	ctx := context.Background()
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{
		ledger.Headers,
		{"45292", "Coffee Shop", "-4.5", "Dining"},
	})
	s := newStore(t, tab)

	dup, err := s.IsDuplicate(ctx, "2024-01", date(2024, time.January, 1), decimal.RequireFromString("-4.50"), "coffee shop")
	require.NoError(t, err)
	assert.True(t, dup)

	listing, err := s.ListTransactions(ctx, ledger.Anchor{Date: "2024-01-01"})
	require.NoError(t, err)
	require.Len(t, listing.Transactions, 1)
	assert.Equal(t, "2024-01-01", listing.Transactions[0].Date)
}

func TestListTransactions_CoreSchema(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-01", [][]string{
		{"date", "DESCRIPTION", "Amount", "Category"},
		{"2024-01-01", "Coffee Shop", "-4.50", "Dining", "ignored"},
	})
	s := newStore(t, tab)

	listing, err := s.ListTransactions(context.Background(), ledger.Anchor{Date: "2024-01-20"})
	require.NoError(t, err)
	assert.Equal(t, 4, listing.Schema)
	require.Len(t, listing.Transactions, 1)
	assert.Empty(t, listing.Transactions[0].MachinePillar)
}

func TestListTransactions_HeaderlessRowsKeepPositions(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	tab.Seed("2024-03", [][]string{
		{"2024-03-01", "Groceries", "-20.00", "Food"},
	})
	s := newStore(t, tab)

	listing, err := s.ListTransactions(context.Background(), ledger.Anchor{})
	require.NoError(t, err)
	assert.Equal(t, 0, listing.Schema)
	require.Len(t, listing.Transactions, 1)
	assert.Equal(t, 1, listing.Transactions[0].RowID)
}

func TestListTransactions_MissingPartition(t *testing.T) {
	tab := inmemory.NewStore("en_US")
	s := newStore(t, tab)

	listing, err := s.ListTransactions(context.Background(), ledger.Anchor{Month: 7, Year: 2023})
	require.NoError(t, err)
	assert.Equal(t, "2023-07", listing.Partition)
	assert.Zero(t, listing.Count)
	assert.NotNil(t, listing.Transactions)
	assert.Empty(t, listing.Transactions)
}

func TestListTransactions_InvalidAnchor(t *testing.T) {
	s := newStore(t, inmemory.NewStore("en_US"))

	_, err := s.ListTransactions(context.Background(), ledger.Anchor{Month: 13})
	assert.ErrorIs(t, err, ledger.ErrInvalidAnchor)

	_, err = s.ListTransactions(context.Background(), ledger.Anchor{Date: "soon"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAnchor)
}

func TestLocalizedPartitions(t *testing.T) {
	tab := inmemory.NewStore("sv_SE")
	s := newStore(t, tab, ledger.WithPartitionStyle(ledger.StyleLocalized))

	res, err := s.AppendTransaction(context.Background(), coffee())
	require.NoError(t, err)
	assert.Equal(t, "Januari 2024", res.Partition)
	assert.NotNil(t, tab.Rows("Januari 2024"))
}

func TestNilStore(t *testing.T) {
	s := ledger.NewStore(nil)
	_, err := s.AppendTransaction(context.Background(), coffee())
	assert.ErrorIs(t, err, ledger.ErrNoStore)
	_, err = s.ListTransactions(context.Background(), ledger.Anchor{})
	assert.ErrorIs(t, err, ledger.ErrNoStore)
}
