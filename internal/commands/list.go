package commands

import (
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-ledger/internal/ledger"
	"github.com/dvloznov/statement-ledger/internal/report"
)

func addAnchorFlags(cmd *cobra.Command, a *ledger.Anchor) {
	cmd.Flags().IntVar(&a.Month, "month", 0, "month number (1-12), defaults to the current month")
	cmd.Flags().IntVar(&a.Year, "year", 0, "year, defaults to the current year")
	cmd.Flags().StringVar(&a.Date, "date", "", "any date inside the month; wins over --month/--year")
}

func newListCommand(app *App) *cobra.Command {
	var anchor ledger.Anchor

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the transactions stored for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.ledgerStore(ctx)
			if err != nil {
				return err
			}
			listing, err := store.ListTransactions(ctx, anchor)
			if err != nil {
				return err
			}
			return app.printJSON(listing)
		},
	}
	addAnchorFlags(cmd, &anchor)
	return cmd
}

func newSummaryCommand(app *App) *cobra.Command {
	var anchor ledger.Anchor

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the budget health summary for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := app.ledgerStore(ctx)
			if err != nil {
				return err
			}
			listing, err := store.ListTransactions(ctx, anchor)
			if err != nil {
				return err
			}
			summary := report.Summarize(listing.Transactions, app.Now())
			summary.Partition = listing.Partition
			return app.printJSON(summary)
		},
	}
	addAnchorFlags(cmd, &anchor)
	return cmd
}
