package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// newAdminCmd groups operator commands that run against the store directly,
// without the HTTP server.
func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands for cards and the access log",
	}
	admin.AddCommand(newAdminLinkCmd(), newAdminUnlinkCmd(), newAdminLogsCmd())
	return admin
}

func newAdminLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <cpf> <nfc_card_uuid>",
		Short: "Bind a card to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			change, err := a.gateway.LinkDirect(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked %s to %s (log %d)\n", change.User.Card(), change.User.Name, change.Log.ID)
			return nil
		},
	}
}

func newAdminUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <cpf>",
		Short: "Remove a user's card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			change, err := a.gateway.Unlink(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlinked %s from %s (log %d)\n", change.Log.CardUUID, change.User.Name, change.Log.ID)
			return nil
		},
	}
}

func newAdminLogsCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the access log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), loadConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			logs, err := a.audit.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(logs) > limit {
				logs = logs[:limit]
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(types.LogListResponse{Logs: logs, Total: len(logs)})
			}
			return printLogs(cmd.OutOrStdout(), logs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries to print (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printLogs(w io.Writer, logs []types.LogEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tACTION\tUSER\tCARD")
	for _, e := range logs {
		user := "-"
		if e.UserID != nil {
			user = fmt.Sprint(*e.UserID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Action, user, e.CardUUID)
	}
	return tw.Flush()
}
