package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"manifestboard/internal/api"
	"manifestboard/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check shared documents, directories and optional tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			binaries := preflight.CheckBinaries(speechRequirements(cfg.Announcements.SpeechCommand))
			failed := preflight.Failed(results)

			if jsonOutput {
				if err := writeJSON(cmd, api.FromChecks(results)); err != nil {
					return err
				}
			} else {
				p := newStatusPrinter(cmd.OutOrStdout())
				p.section("Configuration")
				p.line("Config file", statusInfo, ctx.configPath)
				p.line("Station user", statusInfo, cfg.Station.User)
				p.blank()
				p.section("Checks")
				for _, r := range results {
					p.check(r)
				}
				if len(binaries) > 0 {
					p.blank()
					p.section("Tools")
					for _, b := range binaries {
						p.tool(b)
					}
				}
			}
			if len(failed) > 0 {
				return errors.New(pluralChecks(len(failed)) + " failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func speechRequirements(command string) []preflight.Requirement {
	reqs := []preflight.Requirement{
		{Name: "espeak", Command: "espeak", Description: "Text-to-speech for announcements", Optional: true},
	}
	if command != "" && command != "espeak" {
		reqs = append(reqs, preflight.Requirement{Name: command, Command: command, Description: "Configured speech command", Optional: true})
	}
	return reqs
}

func pluralChecks(n int) string {
	if n == 1 {
		return "1 check"
	}
	return fmt.Sprintf("%d checks", n)
}
