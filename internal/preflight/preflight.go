package preflight

import (
	"context"
	"strings"

	"manifestboard/internal/config"
	"manifestboard/internal/mute"
	"manifestboard/internal/schedule"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Optional checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Shared directory", cfg.Paths.SharedDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDocument("Schedule", cfg.ScheduleFile(), describeSchedule),
		CheckAcknowledgments(cfg.AcknowledgmentsFile()),
		CheckDocument("Mute state", cfg.MuteFile(), describeMute),
	}

	if cfg.Announcements.Enabled && strings.TrimSpace(cfg.Announcements.SpeechCommand) != "" {
		results = append(results, CheckSpeech(cfg))
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// Failed filters results down to the failures.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func describeSchedule(doc schedule.Document) string {
	doc = doc.Normalized()
	carriers := 0
	for _, m := range doc.Manifests {
		carriers += len(m.Carriers)
	}
	return pluralize(len(doc.Manifests), "manifest") + ", " + pluralize(carriers, "carrier")
}

func describeMute(state mute.State) string {
	if !state.IsMuted {
		return "unmuted"
	}
	if state.UnmuteAt.IsZero() {
		return "muted by " + state.MutedBy + " until unmuted"
	}
	return "muted by " + state.MutedBy + " until " + state.UnmuteAt.Format("15:04")
}
