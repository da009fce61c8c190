package api

import (
	"time"

	"manifestboard/internal/ack"
	"manifestboard/internal/board"
	"manifestboard/internal/journal"
	"manifestboard/internal/mute"
	"manifestboard/internal/preflight"
	"manifestboard/internal/status"
)

// FromView converts a board view. now resolves the mute's remaining minutes.
func FromView(view board.View, now time.Time) BoardView {
	out := BoardView{
		Date:           view.Date,
		GeneratedAt:    formatTime(view.GeneratedAt),
		Severity:       view.Severity.String(),
		Unacknowledged: view.Unacknowledged(),
		Counts:         make(map[string]int),
		Entries:        make([]Entry, 0, len(view.Entries)),
		Mute:           FromMuteState(view.Mute, now),
	}
	for s, n := range view.Counts() {
		out.Counts[string(s)] = n
	}
	for _, e := range view.Entries {
		out.Entries = append(out.Entries, FromEntry(e))
	}
	return out
}

// FromEntry converts one board row.
func FromEntry(e board.Entry) Entry {
	out := Entry{
		Time:           e.Time,
		Carrier:        e.Carrier,
		Status:         string(e.Status),
		WindowStart:    formatTime(e.WindowStart),
		WindowEnd:      formatTime(e.WindowEnd),
		NeedsAttention: e.NeedsAttention(),
	}
	if e.Ack != nil {
		rec := FromRecord(*e.Ack)
		out.Acknowledgment = &rec
	}
	return out
}

// FromRecord converts an acknowledgment record.
func FromRecord(rec ack.Record) Acknowledgment {
	return Acknowledgment{
		Date:         rec.Date,
		ManifestTime: rec.ManifestTime,
		Carrier:      rec.Carrier,
		User:         rec.User,
		Status:       string(rec.Status),
		Reason:       rec.Reason,
		Timestamp:    formatTime(rec.Timestamp.Time),
		History:      FromHistory(rec.ReasonHistory),
	}
}

// FromHistory converts a reason history, oldest first.
func FromHistory(entries []ack.HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoryEntry{
			User:      h.User,
			Status:    string(h.Status),
			Reason:    h.Reason,
			Timestamp: formatTime(h.Timestamp.Time),
		})
	}
	return out
}

// FromMuteState converts the mute document as seen at now.
func FromMuteState(state mute.State, now time.Time) MuteState {
	out := MuteState{
		Muted:       state.IsMuted,
		MutedBy:     state.MutedBy,
		MutedAt:     formatTime(state.MutedAt.Time),
		UnmuteAt:    formatTime(state.UnmuteAt.Time),
		LastUpdated: formatTime(state.LastUpdated.Time),
	}
	if !state.IsMuted {
		return out
	}
	left, timed := state.Remaining(now)
	out.Indefinite = !timed
	out.RemainingMinutes = mute.RemainingMinutes(left)
	return out
}

// FromCadence converts polling intervals.
func FromCadence(ackPoll, refresh time.Duration) Cadence {
	return Cadence{AckPollMS: ackPoll.Milliseconds(), RefreshMS: refresh.Milliseconds()}
}

// FromCollision converts a journal entry.
func FromCollision(e journal.Entry) Collision {
	return Collision{
		ID:         e.ID,
		DetectedAt: formatTime(e.DetectedAt),
		InstanceID: e.InstanceID,
		Document:   e.Document,
		Kind:       e.Kind,
		Key:        e.Key,
		Detail:     e.Detail,
	}
}

// FromCollisions converts a slice of journal entries.
func FromCollisions(entries []journal.Entry) []Collision {
	out := make([]Collision, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromCollision(e))
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// StatusLabel renders a status for display, mapping Unknown to a hint.
func StatusLabel(s status.Status) string {
	if s == status.Unknown {
		return "Invalid time"
	}
	return string(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeFormat)
}
