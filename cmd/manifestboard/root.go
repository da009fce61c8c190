package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var userFlag string

	ctx := newCommandContext(&configFlag, &userFlag)

	rootCmd := &cobra.Command{
		Use:           "manifestboard",
		Short:         "Shipping manifest status board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Operator recorded on acknowledgments and mute changes")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newBoardCommand(ctx))
	rootCmd.AddCommand(newAnnounceCommand(ctx))
	rootCmd.AddCommand(newAckCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	for _, cmd := range newMuteCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newScheduleCommand(ctx))
	rootCmd.AddCommand(newCollisionsCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	for _, cmd := range newDaemonCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}

	return rootCmd
}
