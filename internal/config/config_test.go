package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"manifestboard/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MANIFESTBOARD_SHARED_DIR", "")
	t.Setenv("MANIFESTBOARD_USER", "alice")
	t.Setenv("NTFY_TOPIC", "")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantShared := filepath.Join(tempHome, "manifestboard")
	if cfg.Paths.SharedDir != wantShared {
		t.Fatalf("unexpected shared dir: got %q want %q", cfg.Paths.SharedDir, wantShared)
	}
	if cfg.ScheduleFile() != filepath.Join(wantShared, "manifest_config.json") {
		t.Fatalf("unexpected schedule file: %q", cfg.ScheduleFile())
	}
	if cfg.AcknowledgmentsFile() != filepath.Join(wantShared, "acknowledgments.json") {
		t.Fatalf("unexpected acknowledgments file: %q", cfg.AcknowledgmentsFile())
	}
	if cfg.MuteFile() != filepath.Join(wantShared, "mute_state.json") {
		t.Fatalf("unexpected mute file: %q", cfg.MuteFile())
	}
	wantState := filepath.Join(tempHome, ".local", "share", "manifestboard")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Station.User != "alice" {
		t.Fatalf("expected station user from env, got %q", cfg.Station.User)
	}
	if cfg.LeadWindow() != 2*time.Minute || cfg.GraceWindow() != 30*time.Minute {
		t.Fatalf("unexpected windows: lead=%s grace=%s", cfg.LeadWindow(), cfg.GraceWindow())
	}
	if cfg.AnnouncementCooldown() != 20*time.Second {
		t.Fatalf("unexpected cooldown: %s", cfg.AnnouncementCooldown())
	}
	if !cfg.Sync.LogCollisions {
		t.Fatal("expected collision logging enabled by default")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.LogDir(), cfg.Paths.SharedDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "manifestboard.toml")
	sharedDir := filepath.Join(tempDir, "share")

	type payload struct {
		Paths struct {
			SharedDir string `toml:"shared_dir"`
			MuteFile  string `toml:"mute_file"`
			StateDir  string `toml:"state_dir"`
		} `toml:"paths"`
		Windows struct {
			LeadMinutes  int `toml:"lead_minutes"`
			GraceMinutes int `toml:"grace_minutes"`
		} `toml:"windows"`
		Station struct {
			User string `toml:"user"`
		} `toml:"station"`
	}
	custom := payload{}
	custom.Paths.SharedDir = sharedDir
	custom.Paths.MuteFile = "snooze.json"
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Windows.LeadMinutes = 5
	custom.Windows.GraceMinutes = 45
	custom.Station.User = "bob"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.MuteFile() != filepath.Join(sharedDir, "snooze.json") {
		t.Fatalf("expected relative mute file under shared dir, got %q", cfg.MuteFile())
	}
	if cfg.LeadWindow() != 5*time.Minute || cfg.GraceWindow() != 45*time.Minute {
		t.Fatalf("unexpected windows: lead=%s grace=%s", cfg.LeadWindow(), cfg.GraceWindow())
	}
	if cfg.Station.User != "bob" {
		t.Fatalf("expected user bob, got %q", cfg.Station.User)
	}
	if cfg.Sync.QuietAckPollMS != config.Default().Sync.QuietAckPollMS {
		t.Fatalf("expected untouched defaults to survive decode, got %d", cfg.Sync.QuietAckPollMS)
	}
	if cfg.JournalPath() != filepath.Join(tempDir, "state", "journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.JournalPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "grace",
			mutate: func(c *config.Config) { c.Windows.GraceMinutes = 0 },
			want:   "windows.grace_minutes",
		},
		{
			name:   "alerting slower than quiet",
			mutate: func(c *config.Config) { c.Sync.AlertingAckPollMS = c.Sync.QuietAckPollMS + 1 },
			want:   "sync.alerting_ack_poll_ms",
		},
		{
			name:   "non positive poll",
			mutate: func(c *config.Config) { c.Sync.QuietRefreshMS = 0 },
			want:   "sync.quiet_refresh_ms",
		},
		{
			name: "shared documents collide",
			mutate: func(c *config.Config) {
				c.Paths.MuteFile = c.Paths.AcknowledgmentsFile
			},
			want: "must not point at the same file",
		},
		{
			name:   "log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.ScheduleFile = "/share/schedule.json"
			cfg.Paths.AcknowledgmentsFile = "/share/acks.json"
			cfg.Paths.MuteFile = "/share/mute.json"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("MANIFESTBOARD_SHARED_DIR", "")
	t.Setenv("MANIFESTBOARD_USER", "")
	target := filepath.Join(tempDir, "conf", "config.toml")
	share := filepath.Join(tempDir, "floor share")
	if err := config.CreateSample(target, config.SampleOptions{SharedDir: share, User: "dock-3"}); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Sync.AlertingRefreshMS != 2000 {
		t.Fatalf("unexpected alerting refresh: %d", cfg.Sync.AlertingRefreshMS)
	}
	if cfg.Paths.SharedDir != share {
		t.Fatalf("expected prefilled shared dir %q, got %q", share, cfg.Paths.SharedDir)
	}
	if cfg.Station.User != "dock-3" {
		t.Fatalf("expected prefilled user, got %q", cfg.Station.User)
	}
}

func TestRenderSampleDefaultsUntouched(t *testing.T) {
	sample := config.RenderSample(config.SampleOptions{})
	if !strings.Contains(sample, `shared_dir = "~/manifestboard"`) {
		t.Fatal("expected default shared dir in sample")
	}
}

func TestRedactedMasksToken(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIToken = "s3cret"
	if got := cfg.Redacted().Paths.APIToken; got == "s3cret" || got == "" {
		t.Fatalf("expected masked token, got %q", got)
	}
	if cfg.Paths.APIToken != "s3cret" {
		t.Fatal("Redacted must not modify the receiver")
	}
}
