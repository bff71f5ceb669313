package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSpoolCommand(ctx *commandContext) *cobra.Command {
	spoolCmd := &cobra.Command{
		Use:   "spool",
		Short: "Inspect and resend events that failed to reach the backend",
	}
	spoolCmd.AddCommand(newSpoolListCommand(ctx))
	spoolCmd.AddCommand(newSpoolFlushCommand(ctx))
	spoolCmd.AddCommand(newSpoolClearCommand(ctx))
	return spoolCmd
}

func newSpoolListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spooled events, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.spoolStore()
			if err != nil {
				return err
			}
			defer ctx.close()
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Spool is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					shortID(e.ID),
					e.EventType,
					dash(e.EventSource),
					e.Category,
					strconv.Itoa(e.Attempts),
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					dash(e.Error),
				})
			}
			writeRows(cmd.OutOrStdout(),
				[]string{"ID", "Type", "Source", "Category", "Attempts", "Created", "Last Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSpoolFlushCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Resend spooled events to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.spoolStore()
			if err != nil {
				return err
			}
			defer ctx.close()
			client, err := ctx.backendClient()
			if err != nil {
				return err
			}
			result, err := store.Flush(cmd.Context(), client.Logs)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Sent %d, failed %d, skipped %d\n", result.Sent, result.Failed, result.Skipped)
			if result.Stopped {
				fmt.Fprintln(w, "Stopped early: backend unreachable")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newSpoolClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every spooled event",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.spoolStore()
			if err != nil {
				return err
			}
			defer ctx.close()
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d spooled event(s)\n", removed)
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
