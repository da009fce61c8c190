package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"manifestboard/internal/config"
	"manifestboard/internal/daemon"
	"manifestboard/internal/logging"
)

type commandContext struct {
	configFlag *string
	userFlag   *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, userFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		userFlag:   userFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// user returns the --user flag, falling back to the configured station user.
func (c *commandContext) user() string {
	if c.userFlag != nil {
		if u := strings.TrimSpace(*c.userFlag); u != "" {
			return u
		}
	}
	if c.config != nil {
		return c.config.Station.User
	}
	return ""
}

// commandLogger writes warnings and errors to the command's stderr.
func (c *commandContext) commandLogger(w io.Writer) *slog.Logger {
	cfg := c.config
	format := "console"
	if cfg != nil && cfg.Logging.Format == "json" {
		format = "json"
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: format, Console: w})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withDaemon builds an unstarted daemon over the shared documents. Commands
// use it for its operations; no station lock is taken.
func (c *commandContext) withDaemon(cmd *cobra.Command, fn func(*daemon.Daemon) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	d, err := daemon.New(cfg, c.commandLogger(cmd.ErrOrStderr()), daemon.Options{})
	if err != nil {
		return fmt.Errorf("open shared documents: %w", err)
	}
	defer d.Close()
	return fn(d)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
