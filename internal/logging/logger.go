package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"manifestboard/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives the human-facing stream; nil means stderr.
	Console io.Writer
	// FilePath, when set, additionally receives JSON lines.
	FilePath           string
	Development        bool
	ComponentOverrides map[string]string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := ParseLevel(opts.Level)
	overrides := parseOverrides(opts.ComponentOverrides)
	floor := level
	for _, lvl := range overrides {
		if lvl < floor {
			floor = lvl
		}
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(floor)

	addSource := opts.Development || level <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var primary slog.Handler
	switch format {
	case "json":
		primary = newJSONHandler(console, levelVar, addSource)
	case "console":
		primary = newPrettyHandler(console, levelVar, addSource, useColor(console))
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	handlers := []slog.Handler{primary}
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, newJSONHandler(file, levelVar, addSource))
	}

	handler := TeeHandler(handlers...)
	return slog.New(newComponentLevelHandler(handler, level, overrides)), nil
}

// NewFromConfig creates a logger using application config defaults.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	opts := Options{
		Level:              cfg.Logging.Level,
		Format:             cfg.Logging.Format,
		ComponentOverrides: cfg.Logging.ComponentOverrides,
	}
	if dir := cfg.LogDir(); dir != "" {
		opts.FilePath = DailyLogPath(dir, time.Now())
	}
	return New(opts)
}

// ParseLevel maps a textual level onto slog. Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseOverrides(raw map[string]string) map[string]slog.Level {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]slog.Level, len(raw))
	for component, level := range raw {
		component = strings.ToLower(strings.TrimSpace(component))
		if component == "" {
			continue
		}
		out[component] = ParseLevel(level)
	}
	return out
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
