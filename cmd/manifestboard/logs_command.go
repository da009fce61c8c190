package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"manifestboard/internal/config"
	"manifestboard/internal/logging"
	"manifestboard/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filters logs.Filters

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show this station's daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if lines < 0 {
				return fmt.Errorf("--lines must not be negative")
			}
			path := currentLogPath(cfg, time.Now())
			out := cmd.OutOrStdout()
			emit := func(batch []string) {
				for _, rec := range filters.Apply(batch) {
					if raw {
						fmt.Fprintln(out, rec.Raw)
						continue
					}
					fmt.Fprintln(out, logs.Format(rec))
				}
			}

			result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			emit(result.Lines)
			if !follow {
				return nil
			}

			offset := result.Offset
			for {
				next, err := logs.Tail(cmd.Context(), path, logs.TailOptions{Offset: offset, Follow: true, Wait: time.Second})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				emit(next.Lines)
				offset = next.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines as they are written")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unformatted")
	cmd.Flags().StringVar(&filters.Component, "component", "", "Only show lines from this component")
	cmd.Flags().StringVar(&filters.Level, "level", "", "Minimum level (debug, info, warn, error)")
	cmd.Flags().StringVar(&filters.EventType, "event", "", "Only show lines with this event_type")
	cmd.Flags().StringVar(&filters.Carrier, "carrier", "", "Only show lines about this carrier")
	cmd.Flags().StringVar(&filters.Search, "search", "", "Only show lines containing this text")
	return cmd
}

// currentLogPath prefers the manifestboard.log pointer the daemon maintains
// and falls back to today's dated file.
func currentLogPath(cfg *config.Config, now time.Time) string {
	pointer := filepath.Join(cfg.LogDir(), "manifestboard.log")
	if _, err := os.Stat(pointer); err == nil {
		return pointer
	}
	return logging.DailyLogPath(cfg.LogDir(), now)
}
