package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"skimmer/internal/enrich"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Summarize a batch of pending items plus retryable failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd.Context(), "enrich", func(runCtx context.Context, logger *slog.Logger) error {
				st, cfg, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				client, err := ctx.llmClient()
				if err != nil {
					return err
				}
				fetcher, err := ctx.fetcher()
				if err != nil {
					return err
				}

				enricher := enrich.NewEnricher(st, client, fetcher, enrich.Config{
					BatchSize:        cfg.Enrich.BatchSize,
					RetryBatchSize:   cfg.Enrich.RetryBatchSize,
					MaxFetchAttempts: cfg.Enrich.MaxFetchAttempts,
					PromptBudget:     cfg.Enrich.PromptBudget,
				}, logger)

				summary, err := enricher.Run(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Enriched %d of %d items (%d fetch failures, %d generation failures, %d skipped)\n",
					summary.Processed, summary.Examined, summary.FetchFailed, summary.GenerationFailed, summary.Skipped)
				return nil
			})
		},
	}
}
