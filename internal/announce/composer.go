// Package announce turns the board's alerting rows into one spoken and
// ticker message, and dispatches speech without blocking the scheduler.
package announce

import (
	"sort"
	"strings"
	"time"

	"manifestboard/internal/status"
)

const attention = "Attention. "

// Announcement is the composed message. An empty Text means nothing is
// alerting. Key identifies the alerting times and their kinds; it stays the
// same while the wording ages (for example "N minutes late").
type Announcement struct {
	Text   string
	Key    string
	Groups int
	Active bool
	Missed bool
}

type group struct {
	time   string
	active bool
	missed bool
}

// Compose consolidates alerts into a single announcement. One alerting time
// gets a specific message; several collapse into an aggregate by kind.
func Compose(alerts []status.Alert, now time.Time) Announcement {
	var groups []group
	index := make(map[string]int)
	for _, a := range alerts {
		if !a.Status.Alerting() {
			continue
		}
		pos, ok := index[a.Time]
		if !ok {
			pos = len(groups)
			index[a.Time] = pos
			groups = append(groups, group{time: a.Time})
		}
		switch a.Status {
		case status.Active:
			groups[pos].active = true
		case status.Missed:
			groups[pos].missed = true
		}
	}
	if len(groups) == 0 {
		return Announcement{}
	}

	out := Announcement{Groups: len(groups), Key: groupKey(groups)}
	for _, g := range groups {
		out.Active = out.Active || g.active
		out.Missed = out.Missed || g.missed
	}

	if len(groups) == 1 {
		out.Text = single(groups[0], now)
		return out
	}
	switch {
	case out.Active && out.Missed:
		out.Text = attention + "Missed and active manifests need acknowledgment."
	case out.Missed:
		out.Text = attention + "Multiple missed manifests need acknowledgment."
	default:
		out.Text = attention + "Multiple manifests are active."
	}
	return out
}

func groupKey(groups []group) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		kind := ""
		if g.active {
			kind += "A"
		}
		if g.missed {
			kind += "M"
		}
		parts = append(parts, g.time+"="+kind)
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func single(g group, now time.Time) string {
	clock, err := status.ParseClock(g.time)
	if err != nil {
		return attention + "Manifest needs acknowledgment."
	}
	spoken := ClockWords(clock)
	if !g.missed {
		return attention + "Manifest active at " + spoken + "."
	}
	minutes := int(status.Late(clock, now) / time.Minute)
	unit := " minutes late."
	if minutes == 1 {
		unit = " minute late."
	}
	return attention + "Missed manifest at " + spoken + ", " + NumberWords(minutes) + unit
}
