package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dailyLogPrefix = "manifestboard-"
	dailyLogSuffix = ".log"
	dailyLogLayout = "20060102"
)

// DailyLogPath returns the log file used for the given day.
func DailyLogPath(dir string, day time.Time) string {
	return filepath.Join(dir, dailyLogPrefix+day.Format(dailyLogLayout)+dailyLogSuffix)
}

// dailyLogDay parses the day out of a DailyLogPath file name.
func dailyLogDay(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, dailyLogPrefix)
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, dailyLogSuffix)
	if !ok {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dailyLogLayout, stamp, time.Local)
	return day, err == nil
}

// PruneDailyLogs removes daily log files in dir whose day is more than
// retentionDays before now. The day comes from the file name, not the
// modification time, so a log touched late does not linger. Files that are
// not daily logs are left alone. It returns the number of files removed.
func PruneDailyLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.Local).AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		day, ok := dailyLogDay(entry.Name())
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on the state directory"),
				String(FieldImpact, "the file stays on disk until the next start"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
