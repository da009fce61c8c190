package speech_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"manifestboard/internal/config"
	"manifestboard/internal/logging"
	"manifestboard/internal/speech"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "say")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandSpeakerPassesTextLast(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	script := writeScript(t, `printf '%s|%s' "$1" "$2" > "`+out+`"`)
	s := speech.NewCommandSpeaker(script, []string{"-v"}, time.Second, logging.NewNop())

	if err := s.Speak(context.Background(), "Attention. Manifest active at twelve ten."); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "-v|Attention. Manifest active at twelve ten." {
		t.Fatalf("unexpected arguments %q", data)
	}
}

func TestCommandSpeakerReportsFailure(t *testing.T) {
	script := writeScript(t, `echo "no audio device" >&2; exit 3`)
	s := speech.NewCommandSpeaker(script, nil, time.Second, logging.NewNop())
	err := s.Speak(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "no audio device") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCommandSpeakerTimeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)
	s := speech.NewCommandSpeaker(script, nil, 100*time.Millisecond, logging.NewNop())
	start := time.Now()
	if err := s.Speak(context.Background(), "hello"); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("timeout not enforced")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	if _, ok := speech.FromConfig(&cfg, logging.NewNop()).(*speech.LogSpeaker); !ok {
		t.Fatal("expected LogSpeaker without a command")
	}
	cfg.Announcements.SpeechCommand = "espeak"
	if _, ok := speech.FromConfig(&cfg, logging.NewNop()).(*speech.CommandSpeaker); !ok {
		t.Fatal("expected CommandSpeaker with a command")
	}
}
