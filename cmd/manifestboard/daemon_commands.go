package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"manifestboard/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStatusCommand(ctx),
		newStopCommand(ctx),
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a board is running on this station",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			running, pid, err := daemonctl.ProcessInfo(cfg)
			if err != nil {
				return err
			}
			p := newStatusPrinter(cmd.OutOrStdout())

			if !running {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"running": false})
				}
				p.line("Board", statusWarn, "Not running (start with `manifestboard run`)")
				return nil
			}

			client, err := daemonctl.NewClient(cfg)
			if errors.Is(err, daemonctl.ErrAPIDisabled) {
				if jsonOutput {
					return writeJSON(cmd, map[string]any{"running": true, "pid": pid})
				}
				p.line("Board", statusOK, fmt.Sprintf("Running (pid %d)", pid))
				p.line("API", statusInfo, "Disabled")
				return nil
			}
			if err != nil {
				return err
			}
			queryCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			st, err := client.Status(queryCtx)
			if err != nil {
				return fmt.Errorf("query running board: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, st)
			}

			p.line("Board", statusOK, fmt.Sprintf("Running (pid %d) since %s", st.PID, st.StartedAt))
			p.line("Instance", statusInfo, st.InstanceID)
			p.line("Shared directory", statusInfo, st.SharedDir)
			p.severity(st.Severity)
			p.line("Cadence", statusInfo, fmt.Sprintf("ack poll %dms, refresh %dms", st.Cadence.AckPollMS, st.Cadence.RefreshMS))
			for _, check := range st.Checks {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				p.line(check.Name, kind, check.Detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the board running on this station",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			result, err := daemonctl.StopAndTerminate(cfg, grace)
			out := cmd.OutOrStdout()
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Board is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Board (pid %d) did not stop in %s and was killed\n", result.PID, grace)
				return nil
			}
			fmt.Fprintf(out, "Board stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 10*time.Second, "Time to wait for a clean shutdown before killing")
	return cmd
}
