package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"manifestboard/internal/config"
	"manifestboard/internal/schedule"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDocumentDoesNotMutate(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "manifest_config.json")
	result := CheckDocument("Schedule", missing, describeSchedule)
	if !result.Passed {
		t.Fatalf("expected missing document to pass, got: %s", result.Detail)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatalf("check must not create the document, stat err=%v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	result = CheckDocument("Schedule", corrupt, describeSchedule)
	if result.Passed {
		t.Fatal("expected corrupt document to fail")
	}
	if _, err := os.Stat(corrupt + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("check must not back up the document, stat err=%v", err)
	}
}

func TestCheckDocumentDescribesSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest_config.json")
	body := `{"manifests":[{"time":"12:10","carriers":["UPS","FedEx"]},{"time":"16:00","carriers":["DHL"]}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDocument[schedule.Document]("Schedule", path, describeSchedule)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "2 manifests, 3 carriers") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckAcknowledgmentsCountsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acknowledgments.json")
	body := `[
  {"date":"2025-01-01","manifest_time":"12:10","carrier":"UPS","user":"amy","status":"Missed","reason":"Truck late","timestamp":"2025-01-01T12:41:00","reason_history":[]},
  {"carrier":"FedEx"}
]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckAcknowledgments(path)
	if result.Passed {
		t.Fatal("expected malformed record to fail the check")
	}
	if !strings.Contains(result.Detail, "1 record, 1 malformed") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	results := CheckBinaries([]Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available || results[0].Detail != present {
		t.Fatalf("expected first requirement to resolve, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}
}

func TestCheckNtfy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("poll") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckNtfy(context.Background(), srv.URL+"/floor"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckNtfy(context.Background(), ""); result.Passed {
		t.Fatal("expected failure for missing topic")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	shared := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SharedDir = shared
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.ScheduleFile = filepath.Join(shared, "manifest_config.json")
	cfg.Paths.AcknowledgmentsFile = filepath.Join(shared, "acknowledgments.json")
	cfg.Paths.MuteFile = filepath.Join(shared, "mute_state.json")
	cfg.Announcements.SpeechCommand = ""
	cfg.Notifications.NtfyTopic = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_IncludesSpeechWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.SharedDir = t.TempDir()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Announcements.SpeechCommand = "clearly-not-present-tts"

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Speech command" {
			found = true
			if r.Passed {
				t.Error("expected speech check to fail for missing binary")
			}
		}
	}
	if !found {
		t.Fatal("expected speech check in results")
	}
}
