// Package board derives the per-tick view model from the schedule, the
// acknowledgments and the clock. The presentation layer only consumes it;
// severity is computed here, never from rendered output.
package board

import (
	"time"

	"manifestboard/internal/ack"
	"manifestboard/internal/mute"
	"manifestboard/internal/schedule"
	"manifestboard/internal/status"
)

// Severity orders how urgently the board needs attention.
type Severity int

const (
	Quiet Severity = iota
	Active
	Missed
)

func (s Severity) String() string {
	switch s {
	case Active:
		return "active"
	case Missed:
		return "missed"
	default:
		return "quiet"
	}
}

// Alerting reports whether any carrier needs acknowledgment.
func (s Severity) Alerting() bool {
	return s > Quiet
}

// Entry is one manifest/carrier row.
type Entry struct {
	Time    string
	Carrier string
	Status  status.Status
	// WindowStart and WindowEnd bound the Active window; zero for Unknown.
	WindowStart time.Time
	WindowEnd   time.Time
	// Ack is the acknowledgment for this row on the view's date, if any.
	Ack *ack.Record
}

// Acknowledged reports whether the row has been acknowledged today.
func (e Entry) Acknowledged() bool {
	return e.Ack != nil
}

// NeedsAttention reports whether the row is alerting and unacknowledged.
func (e Entry) NeedsAttention() bool {
	return e.Status.Alerting() && e.Ack == nil
}

// View is the board at one instant.
type View struct {
	Date        string
	GeneratedAt time.Time
	Entries     []Entry
	Severity    Severity
	Mute        mute.State
}

// Build assembles the view for now's date. Acknowledgments for other dates
// are ignored; manifests with malformed times produce Unknown rows that
// never alert.
func Build(manifests []schedule.Manifest, acks []ack.Record, now time.Time, windows status.Windows, muteState mute.State) View {
	date := now.Format(time.DateOnly)
	byKey := make(map[ack.Key]*ack.Record, len(acks))
	for i := range acks {
		key := acks[i].Key()
		if key.Date != date {
			continue
		}
		byKey[key] = &acks[i]
	}

	view := View{Date: date, GeneratedAt: now, Mute: muteState, Entries: []Entry{}}
	for _, m := range manifests {
		clock, err := status.ParseClock(m.Time)
		for _, carrier := range m.Carriers {
			entry := Entry{Time: m.Time, Carrier: carrier, Status: status.Unknown}
			if err == nil {
				entry.Time = clock.String()
				entry.Status = windows.Evaluate(clock, now)
				entry.WindowStart, entry.WindowEnd = windows.Bounds(clock, now)
			}
			if rec, ok := byKey[ack.NewKey(date, entry.Time, carrier)]; ok {
				entry.Ack = rec
			}
			view.Entries = append(view.Entries, entry)
		}
	}
	view.Severity = SeverityOf(view.Entries)
	return view
}

// SeverityOf is the highest urgency among rows needing attention.
func SeverityOf(entries []Entry) Severity {
	out := Quiet
	for _, e := range entries {
		if !e.NeedsAttention() {
			continue
		}
		switch e.Status {
		case status.Missed:
			return Missed
		case status.Active:
			out = Active
		}
	}
	return out
}

// Alerts returns the rows needing attention for the announcement composer.
func (v View) Alerts() []status.Alert {
	alerts := make([]status.Alert, 0)
	for _, e := range v.Entries {
		if e.NeedsAttention() {
			alerts = append(alerts, status.Alert{Time: e.Time, Carrier: e.Carrier, Status: e.Status})
		}
	}
	return alerts
}

// Counts tallies rows by status for summaries.
func (v View) Counts() map[status.Status]int {
	counts := make(map[status.Status]int)
	for _, e := range v.Entries {
		counts[e.Status]++
	}
	return counts
}

// Unacknowledged counts rows needing attention.
func (v View) Unacknowledged() int {
	n := 0
	for _, e := range v.Entries {
		if e.NeedsAttention() {
			n++
		}
	}
	return n
}
