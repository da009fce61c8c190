package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"manifestboard/internal/api"
	"manifestboard/internal/daemon"
)

func newCollisionsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "collisions",
		Short: "Show lost-update collisions recorded on this station",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				entries, total, err := d.Collisions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.CollisionsResponse{Collisions: api.FromCollisions(entries), Total: total})
				}
				out := cmd.OutOrStdout()
				if total == 0 {
					fmt.Fprintln(out, "No collisions recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(e.ID, 10),
						e.DetectedAt.Format("2006-01-02 15:04:05"),
						e.Document,
						e.Kind,
						e.Key,
						e.Detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Detected", "Document", "Kind", "Key", "Detail"},
					rows,
					[]columnAlignment{alignRight},
				))
				fmt.Fprintf(out, "Showing %d of %d\n", len(entries), total)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of collisions to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
