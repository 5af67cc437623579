package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"skimmer/internal/chat"
	"skimmer/internal/retrieval"
)

func newAskCommand(ctx *commandContext) *cobra.Command {
	var recipientName string

	cmd := &cobra.Command{
		Use:   "ask <recipient-id> <question>",
		Short: "Answer a question for a recipient using recent items as context",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipientID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recipient id %q", args[0])
			}
			question := strings.Join(args[1:], " ")

			return ctx.runStage(cmd.Context(), "ask", func(runCtx context.Context, logger *slog.Logger) error {
				st, cfg, err := ctx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				client, err := ctx.llmClient()
				if err != nil {
					return err
				}

				// First contact registers the recipient; repeat contact bumps
				// the interaction counter and reactivates if needed.
				isNew := false
				if existing, err := st.GetRecipient(runCtx, recipientID); err == nil && existing == nil {
					isNew = true
				}
				if err := st.UpsertRecipient(runCtx, recipientID, recipientName); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if isNew {
					fmt.Fprintln(out, chat.WelcomeMessage(recipientName))
					fmt.Fprintln(out)
				}

				engine := retrieval.NewEngine(st, client, retrieval.Config{
					MaxItems:          cfg.Retrieval.MaxItems,
					ContentBudget:     cfg.Retrieval.ContentBudget,
					TitleHitWeight:    cfg.Retrieval.TitleHitWeight,
					SummaryHitWeight:  cfg.Retrieval.SummaryHitWeight,
					BodyHitWeight:     cfg.Retrieval.BodyHitWeight,
					TopicAreaBonus:    cfg.Retrieval.TopicAreaBonus,
					RecencyBonusMax:   cfg.Retrieval.RecencyBonusMax,
					DefaultWindowDays: cfg.Retrieval.DefaultWindowDays,
				}, logger)
				assistant := chat.NewAssistant(st, client, engine, chat.Config{
					MaxHistoryTurns: cfg.Chat.MaxHistoryTurns,
				}, logger)

				fmt.Fprintln(out, assistant.Answer(runCtx, recipientID, question))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&recipientName, "name", "", "Display name to record for the recipient")
	return cmd
}
