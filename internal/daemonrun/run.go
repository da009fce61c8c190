package daemonrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"manifestboard/internal/announce"
	"manifestboard/internal/config"
	"manifestboard/internal/daemon"
	"manifestboard/internal/logging"
	"manifestboard/internal/preflight"
	"manifestboard/internal/scheduler"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Console receives the human-facing log stream; nil means stderr.
	Console   io.Writer
	Presenter scheduler.Presenter
	Ticker    announce.Ticker
}

// Run starts a display instance and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := logging.DailyLogPath(cfg.LogDir(), time.Now())
	logger, err := logging.New(logging.Options{
		Level:              level,
		Format:             cfg.Logging.Format,
		Console:            opts.Console,
		FilePath:           logPath,
		Development:        opts.Development,
		ComponentOverrides: cfg.Logging.ComponentOverrides,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.LogDir(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update manifestboard.log link: %v\n", err)
	}
	logging.PruneDailyLogs(logger, cfg.LogDir(), cfg.Logging.RetentionDays, time.Now())
	logPreflight(signalCtx, logger, cfg)

	d, err := daemon.New(cfg, logger, daemon.Options{
		Presenter: opts.Presenter,
		Ticker:    opts.Ticker,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if cfg.Logging.RetentionDays > 0 {
		retention := time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour
		if removed, err := d.PruneCollisions(signalCtx, retention); err != nil {
			logger.Warn("collision journal prune failed", logging.Error(err))
		} else if removed > 0 {
			logger.Info("pruned collision journal",
				logging.Int64("removed", removed),
				logging.String(logging.FieldEventType, "journal_pruned"),
			)
		}
	}

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the other instance or check the state directory"),
			logging.String(logging.FieldImpact, "this station shows no board"),
		)
		return err
	}

	// The pid file is only written while the station lock is held.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("manifestboard shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// logPreflight records failing checks without aborting; a share that is
// briefly unreachable at boot recovers on its own.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(ctx, cfg)
	for _, r := range preflight.Failed(results) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run manifestboard doctor for details"),
		)
	}
	logger.Info("preflight complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
		logging.String(logging.FieldEventType, "preflight_complete"),
	)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "manifestboard.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
