package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"skimmer/internal/ingest"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest raw item JSON lines from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd.Context(), "ingest", func(runCtx context.Context, logger *slog.Logger) error {
				var input io.Reader = cmd.InOrStdin()
				if len(args) == 1 {
					file, err := os.Open(args[0])
					if err != nil {
						return fmt.Errorf("open input: %w", err)
					}
					defer file.Close()
					input = file
				}

				st, _, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				summary, err := ingest.NewIngester(st, logger).Run(runCtx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Ingested %d of %d records (%d duplicates, %d invalid)\n",
					summary.Inserted, summary.Read, summary.Duplicates, summary.Invalid)
				return nil
			})
		},
	}
}
