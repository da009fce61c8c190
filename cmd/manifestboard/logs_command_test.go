package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"manifestboard/internal/logging"
)

func TestLogsCommandTailsAndFilters(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.stateDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := strings.Join([]string{
		`{"ts":"2026-03-02T12:00:00Z","level":"info","msg":"scheduler started","component":"scheduler","event_type":"scheduler_started"}`,
		`{"ts":"2026-03-02T12:00:01Z","level":"warn","msg":"acknowledgment overwritten","component":"ack","event_type":"ack_collision","carrier":"UPS"}`,
	}, "\n") + "\n"
	path := logging.DailyLogPath(logDir, time.Now())
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "scheduler started")
	requireContains(t, out, "event=ack_collision")

	out, _, err = runCLI(t, env, "logs", "--level", "warn")
	if err != nil {
		t.Fatalf("logs --level: %v", err)
	}
	if strings.Contains(out, "scheduler started") {
		t.Fatalf("expected info line filtered out, got %q", out)
	}
	requireContains(t, out, "carrier=UPS")

	out, _, err = runCLI(t, env, "logs", "--raw", "--lines", "1")
	if err != nil {
		t.Fatalf("logs --raw: %v", err)
	}
	if strings.TrimSpace(out) != strings.Split(strings.TrimSpace(content), "\n")[1] {
		t.Fatalf("unexpected raw output %q", out)
	}
}
