package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"skimmer/internal/store"
)

func newRecipientsCommand(ctx *commandContext) *cobra.Command {
	recipientsCmd := &cobra.Command{
		Use:   "recipients",
		Short: "Manage broadcast recipients",
	}
	recipientsCmd.AddCommand(newRecipientsListCommand(ctx))
	recipientsCmd.AddCommand(newRecipientsAddCommand(ctx))
	recipientsCmd.AddCommand(newRecipientsBlockCommand(ctx))
	return recipientsCmd
}

func newRecipientsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			recipients, err := st.ListRecipients(cmd.Context())
			if err != nil {
				return err
			}
			if len(recipients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recipients registered")
				return nil
			}

			rows := make([][]string, 0, len(recipients))
			for _, recipient := range recipients {
				lastSeen := ""
				if recipient.LastInteractionAt != nil {
					lastSeen = recipient.LastInteractionAt.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{
					strconv.FormatInt(recipient.ID, 10),
					recipient.DisplayName,
					string(recipient.Status),
					strconv.FormatInt(recipient.InteractionCount, 10),
					lastSeen,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Status", "Interactions", "Last seen"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newRecipientsAddCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <recipient-id>",
		Short: "Register or reactivate a recipient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recipient id %q", args[0])
			}
			st, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.UpsertRecipient(cmd.Context(), id, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recipient %d is active\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for the recipient")
	return cmd
}

func newRecipientsBlockCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "block <recipient-id>",
		Short: "Exclude a recipient from all broadcasts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid recipient id %q", args[0])
			}
			st, _, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetRecipientStatus(cmd.Context(), id, store.RecipientBlocked); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recipient %d blocked\n", id)
			return nil
		},
	}
}
