package shared_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"manifestboard/internal/shared"
)

type sample struct {
	Name  string      `json:"name"`
	Items []string    `json:"items"`
	At    shared.Time `json:"at"`
}

func defaultSample() sample {
	return sample{Items: []string{}}
}

func TestDocumentCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := shared.NewDocument(path, defaultSample)

	value, result, err := doc.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !result.Created {
		t.Fatal("expected missing document to be created")
	}
	if diff := cmp.Diff(defaultSample(), value); diff != "" {
		t.Fatalf("unexpected default (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := shared.NewDocument(path, defaultSample)
	want := sample{
		Name:  "board",
		Items: []string{"a", "b"},
		At:    shared.At(time.Date(2025, 1, 1, 12, 10, 5, 0, time.UTC)),
	}
	stamp, err := doc.Write(want)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !stamp.Exists || stamp.Size == 0 {
		t.Fatalf("unexpected stamp %+v", stamp)
	}

	got, result, err := doc.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if result.Created {
		t.Fatal("existing document reported as created")
	}
	opt := cmp.Comparer(func(a, b shared.Time) bool { return a.Equal(b.Time) })
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentCorruptIsBackedUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := shared.NewDocument(path, defaultSample)

	value, _, err := doc.Read()
	if !errors.Is(err, shared.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	var corrupt *shared.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected *CorruptError, got %T", err)
	}
	if corrupt.BackupPath != path+".bak" {
		t.Fatalf("unexpected backup path %q", corrupt.BackupPath)
	}
	backup, err := os.ReadFile(corrupt.BackupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != "{broken" {
		t.Fatalf("backup not verbatim: %q", backup)
	}
	if diff := cmp.Diff(defaultSample(), value); diff != "" {
		t.Fatalf("expected default value (-want +got):\n%s", diff)
	}
}

func TestDocumentCorruptRevisionBackedUpOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := shared.NewDocument(path, defaultSample)

	var corrupt *shared.CorruptError
	if _, _, err := doc.Read(); !errors.As(err, &corrupt) || corrupt.Repeated {
		t.Fatalf("expected a first-time CorruptError, got %v", err)
	}
	// Marks the backup so a second copy would be visible.
	if err := os.WriteFile(path+".bak", []byte("marker"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := doc.Read()
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected *CorruptError on reread, got %v", err)
	}
	if !corrupt.Repeated {
		t.Fatal("expected reread of the same revision to be marked repeated")
	}
	if corrupt.BackupPath != path+".bak" {
		t.Fatalf("unexpected backup path %q", corrupt.BackupPath)
	}
	if backup, _ := os.ReadFile(path + ".bak"); string(backup) != "marker" {
		t.Fatalf("backup rewritten for an unchanged revision: %q", backup)
	}

	if err := os.WriteFile(path, []byte("{still broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err = doc.Read()
	if !errors.As(err, &corrupt) || corrupt.Repeated {
		t.Fatalf("expected a new revision to be reported afresh, got %v", err)
	}
	if backup, _ := os.ReadFile(path + ".bak"); string(backup) != "{still broken" {
		t.Fatalf("expected backup of the new revision, got %q", backup)
	}
}

func TestDocumentEmptyFileIsDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := shared.NewDocument(path, defaultSample).Read(); err != nil {
		t.Fatalf("expected empty file to read as default, got %v", err)
	}
	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Fatal("empty file should not be backed up")
	}
}

func TestChangeDetectorPrimesThenDetects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acks.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	detector := shared.NewChangeDetector(path)

	changed, err := detector.Poll()
	if err != nil || changed {
		t.Fatalf("first poll must only prime: changed=%v err=%v", changed, err)
	}
	if changed, _ := detector.Poll(); changed {
		t.Fatal("unchanged file reported as changed")
	}

	if err := os.WriteFile(path, []byte(`[{"carrier":"x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if changed, _ := detector.Poll(); !changed {
		t.Fatal("expected external write to be detected")
	}
	if changed, _ := detector.Poll(); changed {
		t.Fatal("change must be reported once")
	}
}

func TestChangeDetectorObserveSuppressesOwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acks.json")
	doc := shared.NewDocument(path, func() []string { return []string{} })
	detector := shared.NewChangeDetector(path)
	if _, err := detector.Poll(); err != nil {
		t.Fatal(err)
	}

	stamp, err := doc.Write([]string{"mine"})
	if err != nil {
		t.Fatal(err)
	}
	detector.Observe(stamp)
	if changed, _ := detector.Poll(); changed {
		t.Fatal("own write should not be reported as a change")
	}
}

func TestTimeAcceptsLegacyLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2025-01-01T12:10:05Z"`:        time.Date(2025, 1, 1, 12, 10, 5, 0, time.UTC),
		`"2025-01-01T12:10:05.250000"`:  time.Date(2025, 1, 1, 12, 10, 5, 250000000, time.Local),
		`"2025-01-01 12:10:05"`:         time.Date(2025, 1, 1, 12, 10, 5, 0, time.Local),
		`"2025-01-01T12:10:05.5+02:00"`: time.Date(2025, 1, 1, 10, 10, 5, 500000000, time.UTC),
	}
	for raw, want := range cases {
		var got shared.Time
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%s: got %s want %s", raw, got.Time, want)
		}
	}

	var zero shared.Time
	if err := json.Unmarshal([]byte("null"), &zero); err != nil || !zero.IsZero() {
		t.Fatalf("null should decode to zero time: %v %v", zero, err)
	}
	data, err := json.Marshal(zero)
	if err != nil || string(data) != "null" {
		t.Fatalf("zero time should encode as null, got %s %v", data, err)
	}
	var bad shared.Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &bad); err == nil {
		t.Fatal("expected error for unrecognized timestamp")
	}
}
