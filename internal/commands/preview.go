package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dvloznov/statement-ledger/internal/pipeline"
)

func newPreviewCommand(app *App) *cobra.Command {
	var limit int
	var contentType string
	var filename string

	cmd := &cobra.Command{
		Use:   "preview <file|gs://bucket/object|->",
		Short: "Parse a statement and print the transactions for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src := args[0]

			data, err := app.readInput(ctx, src)
			if err != nil {
				return err
			}
			if filename == "" && src != "-" {
				filename = filepath.Base(src)
			}

			ingestor, err := app.ingestor(ctx)
			if err != nil {
				return err
			}
			batch, err := ingestor.Ingest(ctx, pipeline.IngestRequest{
				Filename:    filename,
				ContentType: contentType,
				Data:        data,
			})
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("limit") {
				limit = app.Config.Ingest.PreviewLimit
			}
			return app.printJSON(pipeline.Preview(batch, limit))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", pipeline.DefaultPreviewLimit, "maximum transactions to print (1-5000)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared content type, used when the name has no known extension")
	cmd.Flags().StringVar(&filename, "filename", "", "file name to use for format detection")

	return cmd
}
