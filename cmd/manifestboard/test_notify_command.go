package main

import (
	"github.com/spf13/cobra"

	"manifestboard/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Push a test message to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDaemon(cmd, func(d *daemon.Daemon) error {
				p := newStatusPrinter(cmd.OutOrStdout())
				sent, message, err := d.TestNotification(cmd.Context())
				switch {
				case err != nil:
					p.line("ntfy", statusError, message)
					return err
				case sent:
					p.line("ntfy", statusOK, message)
				default:
					p.line("ntfy", statusWarn, message)
				}
				return nil
			})
		},
	}
}
