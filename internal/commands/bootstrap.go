package commands

import (
	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-ledger/internal/logger"
)

func newBootstrapCommand(app *App) *cobra.Command {
	var skipLedger bool

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the current month partition and the batch log table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.FromContext(ctx)
			result := map[string]any{}

			if !skipLedger {
				store, err := app.ledgerStore(ctx)
				if err != nil {
					return err
				}
				partition, err := store.PartitionFor(ctx, civil.DateOf(app.Now()))
				if err != nil {
					return err
				}
				created, err := store.EnsurePartition(ctx, partition)
				if err != nil {
					return err
				}
				result["partition"] = partition
				result["partition_created"] = created
			}

			if app.Config.BatchLog.Project != "" {
				repo, err := app.batchRepository(ctx)
				if err != nil {
					return err
				}
				created, err := repo.EnsureTable(ctx)
				if err != nil {
					return err
				}
				result["batch_log_created"] = created
			} else {
				log.Info().Msg("batch log disabled, set batchlog.project to enable it")
			}
			return app.printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&skipLedger, "skip-ledger", false, "do not touch the ledger spreadsheet")
	return cmd
}
