// Package status maps a manifest's wall-clock time and the current instant to
// Open, Active or Missed. Everything here is pure: no I/O, no state.
package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the derived state of a manifest/carrier pair.
type Status string

const (
	Open   Status = "Open"
	Active Status = "Active"
	Missed Status = "Missed"
	// Unknown marks an entry whose manifest time could not be parsed.
	Unknown Status = "Unknown"
)

// Alerting reports whether the status demands attention until acknowledged.
func (s Status) Alerting() bool {
	return s == Active || s == Missed
}

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "open":
		return Open, nil
	case "active":
		return Active, nil
	case "missed":
		return Missed, nil
	default:
		return "", fmt.Errorf("unknown status %q", value)
	}
}

// Clock is a manifest's wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (a single-digit hour is tolerated).
func ParseClock(value string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return Clock{}, fmt.Errorf("invalid manifest time %q: want HH:MM", value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid manifest time %q: hour out of range", value)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid manifest time %q: minute out of range", value)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// String renders the canonical zero-padded form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On resolves the clock against day's calendar date in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Windows holds the configurable bounds of the Active window around a
// manifest time T: [T-Lead, T+Grace).
type Windows struct {
	Lead  time.Duration
	Grace time.Duration
}

// DefaultWindows is two minutes of lead and thirty minutes of grace.
func DefaultWindows() Windows {
	return Windows{Lead: 2 * time.Minute, Grace: 30 * time.Minute}
}

// Bounds returns the Active window for clock on now's date.
func (w Windows) Bounds(clock Clock, now time.Time) (start, end time.Time) {
	t := clock.On(now)
	return t.Add(-w.Lead), t.Add(w.Grace)
}

// Evaluate classifies clock at now. Start is inclusive, end exclusive.
func (w Windows) Evaluate(clock Clock, now time.Time) Status {
	start, end := w.Bounds(clock, now)
	switch {
	case now.Before(start):
		return Open
	case now.Before(end):
		return Active
	default:
		return Missed
	}
}

// Classify parses manifestTime and evaluates it.
func (w Windows) Classify(manifestTime string, now time.Time) (Status, error) {
	clock, err := ParseClock(manifestTime)
	if err != nil {
		return Unknown, err
	}
	return w.Evaluate(clock, now), nil
}

// Late returns how long ago the manifest time passed on now's date, or zero
// when it has not passed yet.
func Late(clock Clock, now time.Time) time.Duration {
	if d := now.Sub(clock.On(now)); d > 0 {
		return d
	}
	return 0
}

// Alert is an unacknowledged Active or Missed manifest/carrier pair.
type Alert struct {
	Time    string
	Carrier string
	Status  Status
}
