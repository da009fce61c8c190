package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"manifestboard/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, check and print the station configuration",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigValidateCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
		opts       config.SampleOptions
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, err := os.Stat(target)
				switch {
				case err == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				case !errors.Is(err, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if opts.SharedDir != "" {
				if opts.SharedDir, err = config.ExpandPath(opts.SharedDir); err != nil {
					return fmt.Errorf("resolve shared directory: %w", err)
				}
			}
			if err := config.CreateSample(target, opts); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			if opts.SharedDir == "" {
				fmt.Fprintln(out, "Set paths.shared_dir (or export MANIFESTBOARD_SHARED_DIR) to the share every station uses.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	cmd.Flags().StringVar(&opts.SharedDir, "shared-dir", "", "Shared directory to write into the sample")
	cmd.Flags().StringVar(&opts.User, "station-user", "", "Station user to write into the sample")
	return cmd
}

func initTarget(flag string) (string, error) {
	if target := strings.TrimSpace(flag); target != "" {
		expanded, err := config.ExpandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report where the documents live",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p := newStatusPrinter(cmd.OutOrStdout())
			source := ctx.configPath
			if _, err := os.Stat(ctx.configPath); errors.Is(err, fs.ErrNotExist) {
				source += " (not found; defaults used)"
			}
			p.line("Config file", statusInfo, source)
			p.line("Shared directory", statusInfo, cfg.Paths.SharedDir)
			p.line("Schedule", statusInfo, cfg.ScheduleFile())
			p.line("Acknowledgments", statusInfo, cfg.AcknowledgmentsFile())
			p.line("Mute state", statusInfo, cfg.MuteFile())
			p.line("Windows", statusInfo, fmt.Sprintf("lead %s, grace %s", cfg.LeadWindow(), cfg.GraceWindow()))
			p.line("Collision journal", statusInfo, yesNo(cfg.Sync.LogCollisions))
			p.line("Configuration", statusOK, "valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, err := toml.Marshal(cfg.Redacted())
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# effective configuration from %s\n%s", ctx.configPath, data)
			return nil
		},
	}
}
