package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStation()
	c.normalizeSync()
	c.normalizeAnnouncements()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SharedDir == "" {
		if value, ok := os.LookupEnv("MANIFESTBOARD_SHARED_DIR"); ok {
			c.Paths.SharedDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.SharedDir) == "" {
		c.Paths.SharedDir = defaultSharedDir
	}
	if c.Paths.SharedDir, err = expandPath(c.Paths.SharedDir); err != nil {
		return fmt.Errorf("paths.shared_dir: %w", err)
	}
	if c.Paths.ScheduleFile, err = c.sharedFile(c.Paths.ScheduleFile, defaultScheduleFileName); err != nil {
		return fmt.Errorf("paths.schedule_file: %w", err)
	}
	if c.Paths.AcknowledgmentsFile, err = c.sharedFile(c.Paths.AcknowledgmentsFile, defaultAcknowledgmentsFileName); err != nil {
		return fmt.Errorf("paths.acknowledgments_file: %w", err)
	}
	if c.Paths.MuteFile, err = c.sharedFile(c.Paths.MuteFile, defaultMuteFileName); err != nil {
		return fmt.Errorf("paths.mute_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

// sharedFile resolves a document path; relative names live under shared_dir.
func (c *Config) sharedFile(value, fallback string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	if !strings.HasPrefix(value, "~") && !filepath.IsAbs(value) {
		value = filepath.Join(c.Paths.SharedDir, value)
	}
	return expandPath(value)
}

func (c *Config) normalizeStation() {
	c.Station.User = strings.TrimSpace(c.Station.User)
	if c.Station.User == "" {
		if value, ok := os.LookupEnv("MANIFESTBOARD_USER"); ok {
			c.Station.User = strings.TrimSpace(value)
		}
	}
	if c.Station.User == "" {
		if value, ok := os.LookupEnv("USER"); ok {
			c.Station.User = strings.TrimSpace(value)
		}
	}
	if c.Station.User == "" {
		c.Station.User = defaultStationUser
	}
	c.Station.Name = strings.TrimSpace(c.Station.Name)
	if c.Station.Name == "" {
		if host, err := os.Hostname(); err == nil {
			c.Station.Name = strings.TrimSpace(host)
		}
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.MutePollMS <= 0 {
		c.Sync.MutePollMS = defaultMutePollMS
	}
}

func (c *Config) normalizeAnnouncements() {
	c.Announcements.SpeechCommand = strings.TrimSpace(c.Announcements.SpeechCommand)
	args := c.Announcements.SpeechArgs[:0]
	for _, arg := range c.Announcements.SpeechArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Announcements.SpeechArgs = args
	if c.Announcements.SpeechTimeoutSeconds <= 0 {
		c.Announcements.SpeechTimeoutSeconds = defaultSpeechTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			component = strings.ToLower(strings.TrimSpace(component))
			level = strings.ToLower(strings.TrimSpace(level))
			if component == "" || level == "" {
				continue
			}
			overrides[component] = level
		}
		c.Logging.ComponentOverrides = overrides
	}
}
