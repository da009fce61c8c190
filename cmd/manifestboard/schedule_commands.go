package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"manifestboard/internal/schedule"
	"manifestboard/internal/shared"
	"manifestboard/internal/status"
)

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect or edit the shared manifest schedule",
	}
	scheduleCmd.AddCommand(newScheduleShowCommand(ctx))
	scheduleCmd.AddCommand(newScheduleAddCommand(ctx))
	scheduleCmd.AddCommand(newScheduleRemoveCommand(ctx))
	return scheduleCmd
}

func (c *commandContext) scheduleStore(cmd *cobra.Command) (*schedule.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return schedule.NewStore(cfg.ScheduleFile(), c.commandLogger(cmd.ErrOrStderr())), nil
}

func newScheduleShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List scheduled manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.scheduleStore(cmd)
			if err != nil {
				return err
			}
			doc, err := store.Load()
			if err != nil && !errors.Is(err, shared.ErrCorrupt) {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, doc)
			}
			out := cmd.OutOrStdout()
			if len(doc.Manifests) == 0 {
				fmt.Fprintf(out, "No manifests scheduled in %s\n", store.Path())
				return nil
			}
			rows := make([][]string, 0, len(doc.Manifests))
			for _, m := range doc.Manifests {
				note := ""
				if _, err := status.ParseClock(m.Time); err != nil {
					note = "invalid time"
				}
				rows = append(rows, []string{m.Time, strings.Join(m.Carriers, ", "), note})
			}
			fmt.Fprintln(out, renderTable([]string{"Time", "Carriers", "Note"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newScheduleAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add TIME CARRIER [CARRIER...]",
		Short: "Schedule carriers at a manifest time",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.scheduleStore(cmd)
			if err != nil {
				return err
			}
			doc, err := store.Add(args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %s at %s (%d manifests)\n",
				strings.Join(args[1:], ", "), args[0], len(doc.Manifests))
			return nil
		},
	}
}

func newScheduleRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove TIME [CARRIER]",
		Short: "Remove a carrier, or a whole manifest time, from the schedule",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.scheduleStore(cmd)
			if err != nil {
				return err
			}
			carrier := ""
			if len(args) == 2 {
				carrier = args[1]
			}
			if _, err := store.Remove(args[0], carrier); err != nil {
				return err
			}
			if carrier == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed manifest %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", carrier, args[0])
			}
			return nil
		},
	}
}
