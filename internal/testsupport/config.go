package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"manifestboard/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The shared documents live under <tmp>/share and local state under
// <tmp>/state. The API is disabled unless WithAPI is given.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	shared := filepath.Join(base, "share")
	cfgVal.Paths.SharedDir = shared
	cfgVal.Paths.ScheduleFile = filepath.Join(shared, "manifest_config.json")
	cfgVal.Paths.AcknowledgmentsFile = filepath.Join(shared, "acknowledgments.json")
	cfgVal.Paths.MuteFile = filepath.Join(shared, "mute_state.json")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.APIBind = ""
	cfgVal.Station.User = "tester"
	cfgVal.Station.Name = "test-station"
	cfgVal.Announcements.Enabled = false

	builder := &configBuilder{
		t:   t,
		cfg: &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPI enables the HTTP API on an ephemeral loopback port.
func WithAPI(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIBind = "127.0.0.1:0"
		b.cfg.Paths.APIToken = token
	}
}

// WithUser sets the station user.
func WithUser(user string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Station.User = user
	}
}

// WithNtfyTopic sets the ntfy topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithFastSync shortens every polling interval so tests observe changes
// quickly.
func WithFastSync() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.QuietAckPollMS = 40
		b.cfg.Sync.QuietRefreshMS = 100
		b.cfg.Sync.AlertingAckPollMS = 20
		b.cfg.Sync.AlertingRefreshMS = 50
		b.cfg.Sync.MutePollMS = 20
	}
}

// WithoutCollisionJournal disables the local collision journal.
func WithoutCollisionJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.LogCollisions = false
	}
}

// WithConfig applies a custom mutation to the config.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		if fn != nil {
			fn(b.cfg)
		}
	}
}

// EnsureDirectories creates the shared and state directories.
func EnsureDirectories(t testing.TB, cfg *config.Config) {
	t.Helper()
	for _, dir := range []string{cfg.Paths.SharedDir, cfg.Paths.StateDir, cfg.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
}
