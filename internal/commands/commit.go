package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-ledger/internal/pipeline"
)

func newCommitCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <approvals.json|->",
		Short: "Write approved transactions to the ledger",
		Long: "Reads a JSON array of approvals, or an object with a \"transactions\" array,\n" +
			"and appends each one to its month partition, skipping duplicates.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := app.readInput(ctx, args[0])
			if err != nil {
				return err
			}
			approvals, err := decodeApprovals(data)
			if err != nil {
				return err
			}

			store, err := app.ledgerStore(ctx)
			if err != nil {
				return err
			}
			res, err := pipeline.Commit(ctx, store, approvals)
			if err != nil {
				return err
			}
			return app.printJSON(map[string]int{
				"appended":   res.Appended,
				"duplicates": res.Duplicates,
			})
		},
	}
	return cmd
}

func decodeApprovals(data []byte) ([]pipeline.Approval, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var approvals []pipeline.Approval
		if err := json.Unmarshal(trimmed, &approvals); err != nil {
			return nil, fmt.Errorf("decode approvals: %w", err)
		}
		return approvals, nil
	}

	var req struct {
		Transactions []pipeline.Approval `json:"transactions"`
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, fmt.Errorf("decode approvals: %w", err)
	}
	return req.Transactions, nil
}
