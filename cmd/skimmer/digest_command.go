package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"skimmer/internal/broadcast"
	"skimmer/internal/digest"
	"skimmer/internal/services"
	"skimmer/internal/store"
)

func newDigestCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Compose the daily digest and broadcast it to active recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd.Context(), "digest", func(runCtx context.Context, logger *slog.Logger) error {
				st, cfg, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				composer := digest.NewComposer(st, digest.Config{
					MaxItems:         cfg.Digest.MaxItems,
					MinSummaryLength: cfg.Digest.MinSummaryLength,
					Communities:      cfg.Communities.Names,
				}, logger)

				composed, err := composer.Compose(runCtx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if dryRun {
					fmt.Fprintln(out, composed.Message)
					return nil
				}

				// Quiet digests are recorded too, with zero items, so a
				// re-run on the same day cannot re-broadcast the quiet
				// message.
				record, err := composer.Record(runCtx, composed)
				if err != nil {
					if errors.Is(err, services.ErrDuplicateKey) {
						fmt.Fprintf(out, "Digest for %s already sent\n", composed.Date)
						return nil
					}
					return err
				}

				sender, err := ctx.sender()
				if err != nil {
					return err
				}
				dispatcher := broadcast.NewDispatcher(st, sender, broadcast.Config{
					AlertScoreThreshold: int64(cfg.Broadcast.AlertScoreThreshold),
					AlertWindowHours:    cfg.Broadcast.AlertWindowHours,
					SendDelayMillis:     cfg.Broadcast.SendDelayMillis,
				}, logger)

				report, err := dispatcher.DispatchDigest(runCtx, composed.Message)
				status := store.DigestCompleted
				if err != nil || report.Sent == 0 {
					status = store.DigestFailed
				}
				if updateErr := st.UpdateDigestStatus(runCtx, record.ID, status); updateErr != nil {
					logger.Error("update digest status", "error", updateErr)
				}
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "Digest for %s sent to %d of %d recipients (%d blocked, %d transient failures)\n",
					composed.Date, report.Sent, report.Recipients, report.Blocked, report.Transient)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the digest instead of sending it")
	return cmd
}
