package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"manifestboard/internal/ack"
	"manifestboard/internal/api"
	"manifestboard/internal/daemon"
)

func newAckCommand(ctx *commandContext) *cobra.Command {
	var reason string
	var date string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ack TIME CARRIER",
		Short: "Acknowledge a carrier's manifest",
		Long: "Acknowledge a carrier's manifest. The status is taken from the clock:\n" +
			"an Active manifest needs no reason, a Missed manifest requires --reason,\n" +
			"and a manifest whose window has not opened cannot be acknowledged.\n" +
			"Acknowledging again appends to the reason history.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				rec, err := d.Acknowledge(cmd.Context(), daemon.AckRequest{
					Date:         date,
					ManifestTime: args[0],
					Carrier:      args[1],
					User:         ctx.user(),
					Reason:       reason,
				})
				if err != nil {
					return describeAckError(err)
				}
				if jsonOutput {
					return writeJSON(cmd, api.AckResponse{Acknowledgment: api.FromRecord(rec)})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Acknowledged %s %s (%s) as %s\n", rec.ManifestTime, rec.Carrier, rec.Date, rec.User)
				if rec.Reason != "" {
					fmt.Fprintf(out, "Reason: %s\n", rec.Reason)
				}
				if n := len(rec.ReasonHistory); n > 1 {
					fmt.Fprintf(out, "History: %d acknowledgments\n", n)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason (required for missed manifests)")
	cmd.Flags().StringVar(&date, "date", "", "Manifest date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func describeAckError(err error) error {
	switch {
	case errors.Is(err, daemon.ErrNotActive):
		return fmt.Errorf("%w; acknowledge once the window opens", err)
	case errors.Is(err, ack.ErrInvalid) && strings.Contains(err.Error(), "reason"):
		return fmt.Errorf("%w (use --reason)", err)
	default:
		return err
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var date string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history TIME CARRIER",
		Short: "Show the acknowledgment history of a carrier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(date) == "" {
				date = time.Now().Format(time.DateOnly)
			}
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				entries, err := d.History(cmd.Context(), date, args[0], args[1])
				if err != nil {
					return err
				}
				if jsonOutput {
					key := ack.NewKey(date, args[0], args[1])
					return writeJSON(cmd, api.HistoryResponse{
						Date:         key.Date,
						ManifestTime: key.ManifestTime,
						Carrier:      key.Carrier,
						Entries:      api.FromHistory(entries),
					})
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No acknowledgments recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for i, e := range entries {
					rows = append(rows, []string{
						fmt.Sprintf("%d", i+1),
						e.Timestamp.Format("2006-01-02 15:04:05"),
						e.User,
						string(e.Status),
						e.Reason,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "When", "User", "Status", "Reason"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Manifest date as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
