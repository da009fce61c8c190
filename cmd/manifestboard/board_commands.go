package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"manifestboard/internal/api"
	"manifestboard/internal/daemon"
	"manifestboard/internal/speech"
)

func newBoardCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show today's manifests and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				view, err := d.View(cmd.Context())
				if err != nil {
					return err
				}
				now := time.Now()
				if jsonOutput {
					payload := api.FromView(view, now)
					payload.Announcement = d.Announcement(view).Text
					return writeJSON(cmd, payload)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderBoard(view, now, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newAnnounceCommand(ctx *commandContext) *cobra.Command {
	var speak bool

	cmd := &cobra.Command{
		Use:   "announce",
		Short: "Print the announcement for the current board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				view, err := d.View(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				announcement := d.Announcement(view)
				if announcement.Text == "" {
					fmt.Fprintln(out, "Nothing to announce")
					return nil
				}
				fmt.Fprintln(out, announcement.Text)
				if !speak {
					return nil
				}
				if view.Mute.IsMuted {
					fmt.Fprintln(out, "Alerts are muted; not speaking")
					return nil
				}
				speaker := speech.FromConfig(ctx.config, ctx.commandLogger(cmd.ErrOrStderr()))
				return speaker.Speak(cmd.Context(), announcement.Text)
			})
		},
	}

	cmd.Flags().BoolVar(&speak, "speak", false, "Also speak the announcement with the configured speech command")
	return cmd
}
