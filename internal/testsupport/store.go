package testsupport

import (
	"context"
	"testing"

	"manifestboard/internal/ack"
	"manifestboard/internal/config"
	"manifestboard/internal/logging"
	"manifestboard/internal/schedule"
	"manifestboard/internal/status"
)

// Schedule is one manifest entry for WriteSchedule.
type Schedule map[string][]string

// WriteSchedule stores manifests (time to carriers) in the config's schedule
// document.
func WriteSchedule(t testing.TB, cfg *config.Config, manifests Schedule) *schedule.Store {
	t.Helper()

	store := schedule.NewStore(cfg.ScheduleFile(), logging.NewNop())
	for at, carriers := range manifests {
		if _, err := store.Add(at, carriers...); err != nil {
			t.Fatalf("schedule.Add %s: %v", at, err)
		}
	}
	return store
}

// RemoteAckStore opens the acknowledgment document the way a second station
// would, under its own instance id.
func RemoteAckStore(cfg *config.Config, instanceID string) *ack.Store {
	return ack.NewStore(cfg.AcknowledgmentsFile(), logging.NewNop(), ack.Options{InstanceID: instanceID})
}

// Acknowledge records an acknowledgment through a remote store.
func Acknowledge(t testing.TB, cfg *config.Config, date, manifestTime, carrier, user string, st status.Status, reason string) ack.Record {
	t.Helper()

	rec, err := RemoteAckStore(cfg, "remote-"+user).Record(context.Background(), ack.Acknowledgment{
		Date:         date,
		ManifestTime: manifestTime,
		Carrier:      carrier,
		User:         user,
		Status:       st,
		Reason:       reason,
	})
	if err != nil {
		t.Fatalf("ack.Record: %v", err)
	}
	return rec
}
