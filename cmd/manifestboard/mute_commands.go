package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"manifestboard/internal/api"
	"manifestboard/internal/daemon"
)

func newMuteCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newMuteCommand(ctx),
		newUnmuteCommand(ctx),
		newMuteStatusCommand(ctx),
	}
}

func newMuteCommand(ctx *commandContext) *cobra.Command {
	var minutes int
	var toggle bool

	cmd := &cobra.Command{
		Use:   "mute",
		Short: "Mute spoken alerts on every board",
		Long: "Mute spoken alerts on every board sharing this directory. Without\n" +
			"--minutes the mute lasts until someone unmutes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes < 0 {
				return fmt.Errorf("--minutes must not be negative")
			}
			duration := time.Duration(minutes) * time.Minute
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				var (
					message string
					err     error
				)
				if toggle {
					_, message, err = d.ToggleMute(cmd.Context(), ctx.user(), duration)
				} else {
					_, message, err = d.SetMute(cmd.Context(), true, ctx.user(), duration)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "Mute for this many minutes (0 = until unmuted)")
	cmd.Flags().BoolVar(&toggle, "toggle", false, "Flip the current mute state instead")
	return cmd
}

func newUnmuteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unmute",
		Short: "Resume spoken alerts on every board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				_, message, err := d.SetMute(cmd.Context(), false, ctx.user(), 0)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	}
}

func newMuteStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "mute-status",
		Short: "Show the shared mute state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				state := d.MuteState(cmd.Context())
				now := time.Now()
				if jsonOutput {
					return writeJSON(cmd, api.FromMuteState(state, now))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Alerts: %s\n", muteSummary(state, now))
				if state.IsMuted && !state.MutedAt.IsZero() {
					fmt.Fprintf(out, "Muted at: %s\n", state.MutedAt.Format("2006-01-02 15:04:05"))
				}
				if !state.LastUpdated.IsZero() {
					fmt.Fprintf(out, "Last updated: %s\n", state.LastUpdated.Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
