// Package commands implements the statement-ledger CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-ledger/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newApp(), config.Load)
}

func newRootCommand(app *App, load func() (config.Config, error)) *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Import bank statements into a month-partitioned spreadsheet ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			app.Config = cfg

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(withLogger(ctx, cfg.Log.Level))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newPreviewCommand(app),
		newCommitCommand(app),
		newListCommand(app),
		newSummaryCommand(app),
		newCategoriesCommand(app),
		newBootstrapCommand(app),
	)
	return rootCmd
}
