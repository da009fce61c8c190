package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWindows(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateAnnouncements(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	documents := map[string]string{
		"paths.schedule_file":        c.Paths.ScheduleFile,
		"paths.acknowledgments_file": c.Paths.AcknowledgmentsFile,
		"paths.mute_file":            c.Paths.MuteFile,
	}
	seen := make(map[string]string, len(documents))
	for key, path := range documents {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if other, dup := seen[path]; dup {
			return fmt.Errorf("%s and %s must not point at the same file", other, key)
		}
		seen[path] = key
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateWindows() error {
	if c.Windows.LeadMinutes < 0 {
		return errors.New("windows.lead_minutes must not be negative")
	}
	if c.Windows.GraceMinutes <= 0 {
		return errors.New("windows.grace_minutes must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"sync.quiet_ack_poll_ms":    c.Sync.QuietAckPollMS,
		"sync.quiet_refresh_ms":     c.Sync.QuietRefreshMS,
		"sync.alerting_ack_poll_ms": c.Sync.AlertingAckPollMS,
		"sync.alerting_refresh_ms":  c.Sync.AlertingRefreshMS,
		"sync.mute_poll_ms":         c.Sync.MutePollMS,
	}); err != nil {
		return err
	}
	if c.Sync.AlertingAckPollMS > c.Sync.QuietAckPollMS {
		return errors.New("sync.alerting_ack_poll_ms must not be slower than sync.quiet_ack_poll_ms")
	}
	if c.Sync.AlertingRefreshMS > c.Sync.QuietRefreshMS {
		return errors.New("sync.alerting_refresh_ms must not be slower than sync.quiet_refresh_ms")
	}
	return nil
}

func (c *Config) validateAnnouncements() error {
	if c.Announcements.CooldownSeconds <= 0 {
		return errors.New("announcements.cooldown_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
