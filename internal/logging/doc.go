// Package logging assembles the structured slog loggers shared by every
// manifestboard component.
//
// It owns the console and JSON handlers, per-component level overrides, the
// daily log file under the state directory, and the attribute helpers that
// keep warning and error lines in the same shape (event_type, error_hint,
// impact). A no-op logger is provided for tests and wiring code that cannot
// fail.
package logging
