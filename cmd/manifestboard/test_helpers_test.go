package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	sharedDir  string
	stateDir   string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("MANIFESTBOARD_SHARED_DIR", "")
	t.Setenv("MANIFESTBOARD_USER", "")
	t.Setenv("NTFY_TOPIC", "")

	env := &cliTestEnv{
		baseDir:    base,
		sharedDir:  filepath.Join(base, "share"),
		stateDir:   filepath.Join(base, "state"),
		configPath: filepath.Join(homeDir, ".config", "manifestboard", "config.toml"),
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, env)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nshared_dir = %q\nstate_dir = %q\napi_bind = \"\"\n\n[station]\nuser = \"tester\"\nname = \"dock-1\"\n\n[announcements]\nenabled = false\n\n[logging]\nformat = \"json\"\n",
		env.sharedDir,
		env.stateDir,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
