package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"skimmer/internal/broadcast"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Push unpushed high-engagement items to active recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runStage(cmd.Context(), "alerts", func(runCtx context.Context, logger *slog.Logger) error {
				st, cfg, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				sender, err := ctx.sender()
				if err != nil {
					return err
				}
				dispatcher := broadcast.NewDispatcher(st, sender, broadcast.Config{
					AlertScoreThreshold: int64(cfg.Broadcast.AlertScoreThreshold),
					AlertWindowHours:    cfg.Broadcast.AlertWindowHours,
					SendDelayMillis:     cfg.Broadcast.SendDelayMillis,
				}, logger)

				report, err := dispatcher.DispatchAlerts(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Dispatched %d alerts to %d recipients (%d sends, %d blocked, %d transient failures)\n",
					report.Alerts, report.Recipients, report.Sent, report.Blocked, report.Transient)
				return nil
			})
		},
	}
}
