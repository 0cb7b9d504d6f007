package commands

import (
	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

func newCategoriesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the fixed category list and the allowed auxiliary column values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.printJSON(map[string][]string{
				"categories":        domain.Categories(),
				"machine_pillars":   domain.MachinePillars(),
				"integrity_filters": domain.IntegrityFilters(),
				"root_triggers":     domain.RootTriggers(),
			})
		},
	}
}
