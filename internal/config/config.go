package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains shared document locations and local state directories.
type Paths struct {
	SharedDir           string `toml:"shared_dir"`
	ScheduleFile        string `toml:"schedule_file"`
	AcknowledgmentsFile string `toml:"acknowledgments_file"`
	MuteFile            string `toml:"mute_file"`
	StateDir            string `toml:"state_dir"`
	APIBind             string `toml:"api_bind"`
	APIToken            string `toml:"api_token"`
}

// Station identifies the operator and display instance.
type Station struct {
	User string `toml:"user"`
	Name string `toml:"name"`
}

// Windows contains the manifest status window sizes in minutes.
type Windows struct {
	LeadMinutes  int `toml:"lead_minutes"`
	GraceMinutes int `toml:"grace_minutes"`
}

// Sync contains the polling cadences used by the scheduler.
type Sync struct {
	QuietAckPollMS    int  `toml:"quiet_ack_poll_ms"`
	QuietRefreshMS    int  `toml:"quiet_refresh_ms"`
	AlertingAckPollMS int  `toml:"alerting_ack_poll_ms"`
	AlertingRefreshMS int  `toml:"alerting_refresh_ms"`
	MutePollMS        int  `toml:"mute_poll_ms"`
	Watch             bool `toml:"watch"`
	LogCollisions     bool `toml:"log_collisions"`
}

// Announcements contains ticker and speech settings.
type Announcements struct {
	Enabled              bool     `toml:"enabled"`
	CooldownSeconds      int      `toml:"cooldown_seconds"`
	SpeechCommand        string   `toml:"speech_command"`
	SpeechArgs           []string `toml:"speech_args"`
	SpeechTimeoutSeconds int      `toml:"speech_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Announcements  bool   `toml:"announcements"`
	MuteChanges    bool   `toml:"mute_changes"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for manifestboard.
//
// Configuration sections by subsystem:
//   - Paths: shared documents, local state directory, API bind address
//   - Station: operator name recorded on acknowledgments and mute changes
//   - Windows: status engine window sizes
//   - Sync: scheduler cadences and collision journaling
//   - Announcements: ticker/speech behaviour
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Station       Station       `toml:"station"`
	Windows       Windows       `toml:"windows"`
	Sync          Sync          `toml:"sync"`
	Announcements Announcements `toml:"announcements"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/manifestboard/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("manifestboard.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state directory and, on a best-effort
// basis, the shared directory. A network share that is briefly offline must
// not stop an instance from starting; polling heals once it returns.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.SharedDir) != "" {
		_ = os.MkdirAll(c.Paths.SharedDir, 0o755)
	}
	return nil
}

// ScheduleFile returns the shared manifest schedule document path.
func (c *Config) ScheduleFile() string {
	return c.Paths.ScheduleFile
}

// AcknowledgmentsFile returns the shared acknowledgment document path.
func (c *Config) AcknowledgmentsFile() string {
	return c.Paths.AcknowledgmentsFile
}

// MuteFile returns the shared mute document path.
func (c *Config) MuteFile() string {
	return c.Paths.MuteFile
}

// LogDir returns the directory holding this station's log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

// JournalPath returns the local collision journal database path.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "manifestboard.lock")
}

// PIDPath returns the pid file written by the running instance.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "manifestboard.pid")
}

// LeadWindow returns how long before a manifest time it becomes active.
func (c *Config) LeadWindow() time.Duration {
	return time.Duration(c.Windows.LeadMinutes) * time.Minute
}

// GraceWindow returns how long after a manifest time it stays active.
func (c *Config) GraceWindow() time.Duration {
	return time.Duration(c.Windows.GraceMinutes) * time.Minute
}

// AnnouncementCooldown returns the re-announcement interval.
func (c *Config) AnnouncementCooldown() time.Duration {
	return time.Duration(c.Announcements.CooldownSeconds) * time.Second
}

// SpeechTimeout bounds a single speech command invocation.
func (c *Config) SpeechTimeout() time.Duration {
	return time.Duration(c.Announcements.SpeechTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleOptions prefills values in the sample configuration. Empty fields
// keep the sample's defaults.
type SampleOptions struct {
	SharedDir string
	User      string
}

// RenderSample returns the commented sample configuration with opts applied.
func RenderSample(opts SampleOptions) string {
	sample := sampleConfig
	if dir := strings.TrimSpace(opts.SharedDir); dir != "" {
		sample = strings.Replace(sample, `shared_dir = "`+defaultSharedDir+`"`, "shared_dir = "+strconv.Quote(dir), 1)
	}
	if user := strings.TrimSpace(opts.User); user != "" {
		sample = strings.Replace(sample, "\nuser = \"\"", "\nuser = "+strconv.Quote(user), 1)
	}
	return sample
}

// CreateSample writes the sample configuration to path, creating its
// directory.
func CreateSample(path string, opts SampleOptions) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(RenderSample(opts)), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print: the API token is masked.
func (c Config) Redacted() Config {
	if c.Paths.APIToken != "" {
		c.Paths.APIToken = "********"
	}
	return c
}
