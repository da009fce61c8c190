package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"manifestboard/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool
	var headless bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the status board for this station",
		Long: "Run a display instance in the foreground. The board is redrawn on the\n" +
			"terminal and logs go to stderr and the daily log file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts := daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
				Console:     cmd.ErrOrStderr(),
			}
			if !headless {
				presenter := newConsolePresenter(cmd.OutOrStdout())
				opts.Presenter = presenter
				opts.Ticker = presenter
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in logs")
	cmd.Flags().BoolVar(&headless, "headless", false, "Do not draw the board; log and announce only")
	return cmd
}
