package board_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"manifestboard/internal/ack"
	"manifestboard/internal/board"
	"manifestboard/internal/mute"
	"manifestboard/internal/schedule"
	"manifestboard/internal/status"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 1, 1, hour, minute, 0, 0, time.Local)
}

var manifests = []schedule.Manifest{
	{Time: "11:00", Carriers: []string{"UPS", "FedEx"}},
	{Time: "12:10", Carriers: []string{"CarrierX"}},
	{Time: "15:00", Carriers: []string{"DHL"}},
	{Time: "later", Carriers: []string{"Local"}},
}

func TestBuildStatuses(t *testing.T) {
	view := board.Build(manifests, nil, at(12, 9), status.DefaultWindows(), mute.State{})

	got := make([]string, 0, len(view.Entries))
	for _, e := range view.Entries {
		got = append(got, e.Time+" "+e.Carrier+" "+string(e.Status))
	}
	want := []string{
		"11:00 UPS Missed",
		"11:00 FedEx Missed",
		"12:10 CarrierX Active",
		"15:00 DHL Open",
		"later Local Unknown",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if view.Severity != board.Missed {
		t.Fatalf("expected missed severity, got %s", view.Severity)
	}
	if view.Date != "2025-01-01" {
		t.Fatalf("unexpected date %q", view.Date)
	}
}

func TestAcknowledgmentsSuppressAlerts(t *testing.T) {
	acks := []ack.Record{
		{Date: "2025-01-01", ManifestTime: "11:00", Carrier: "UPS", Status: status.Missed, Reason: "late"},
		{Date: "2025-01-01", ManifestTime: "11:00", Carrier: "FedEx", Status: status.Missed, Reason: "late"},
		// Yesterday's acknowledgment does not count today.
		{Date: "2024-12-31", ManifestTime: "12:10", Carrier: "CarrierX", Status: status.Active},
	}
	view := board.Build(manifests, acks, at(12, 9), status.DefaultWindows(), mute.State{})

	if view.Severity != board.Active {
		t.Fatalf("expected active severity, got %s", view.Severity)
	}
	alerts := view.Alerts()
	want := []status.Alert{{Time: "12:10", Carrier: "CarrierX", Status: status.Active}}
	if diff := cmp.Diff(want, alerts); diff != "" {
		t.Fatalf("alerts mismatch (-want +got):\n%s", diff)
	}
	if view.Unacknowledged() != 1 {
		t.Fatalf("expected one unacknowledged row, got %d", view.Unacknowledged())
	}
	if !view.Entries[0].Acknowledged() || view.Entries[0].Ack.Reason != "late" {
		t.Fatalf("expected first row acknowledged, got %+v", view.Entries[0])
	}
}

func TestQuietBoard(t *testing.T) {
	view := board.Build(manifests, nil, at(6, 0), status.DefaultWindows(), mute.State{})
	if view.Severity.Alerting() {
		t.Fatalf("expected quiet board, got %s", view.Severity)
	}
	if len(view.Alerts()) != 0 {
		t.Fatalf("expected no alerts, got %v", view.Alerts())
	}
	counts := view.Counts()
	if counts[status.Open] != 4 || counts[status.Unknown] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestUnknownNeverAlerts(t *testing.T) {
	entries := []board.Entry{{Time: "garbage", Carrier: "X", Status: status.Unknown}}
	if board.SeverityOf(entries) != board.Quiet {
		t.Fatal("unknown rows must not raise severity")
	}
}
