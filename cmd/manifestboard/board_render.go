package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"manifestboard/internal/api"
	"manifestboard/internal/board"
	"manifestboard/internal/mute"
	"manifestboard/internal/status"
)

// renderBoard draws the view as a header block and one table row per
// manifest/carrier.
func renderBoard(view board.View, now time.Time, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Manifests for %s  (as of %s)\n", view.Date, view.GeneratedAt.Format("15:04:05"))
	fmt.Fprintf(&b, "Severity: %s    Unacknowledged: %d\n", severityLabel(view.Severity, colorize), view.Unacknowledged())
	fmt.Fprintf(&b, "Alerts: %s\n", muteSummary(view.Mute, now))

	if len(view.Entries) == 0 {
		b.WriteString("No manifests scheduled.\n")
		return b.String()
	}

	headers := []string{"Time", "Carrier", "Status", "Window", "Acknowledged", "Reason"}
	rows := make([][]string, 0, len(view.Entries))
	var colors []text.Colors
	if colorize {
		colors = make([]text.Colors, 0, len(view.Entries))
	}
	for _, e := range view.Entries {
		rows = append(rows, boardRow(e))
		if colorize {
			colors = append(colors, entryColors(e))
		}
	}
	b.WriteString(renderStyledTable(headers, rows, nil, tableOptions{RowColors: colors}))
	b.WriteString("\n")
	return b.String()
}

func boardRow(e board.Entry) []string {
	window := ""
	if !e.WindowStart.IsZero() {
		window = e.WindowStart.Format("15:04") + "-" + e.WindowEnd.Format("15:04")
	}
	acked, reason := "", ""
	if e.Ack != nil {
		acked = fmt.Sprintf("%s at %s", e.Ack.User, e.Ack.Timestamp.Time.Format("15:04"))
		reason = e.Ack.Reason
	}
	return []string{e.Time, e.Carrier, api.StatusLabel(e.Status), window, acked, reason}
}

func entryColors(e board.Entry) text.Colors {
	switch {
	case e.Ack != nil:
		return text.Colors{text.FgGreen}
	case e.Status == status.Missed:
		return text.Colors{text.FgRed, text.Bold}
	case e.Status == status.Active:
		return text.Colors{text.FgYellow, text.Bold}
	case e.Status == status.Unknown:
		return text.Colors{text.FgHiBlack}
	default:
		return nil
	}
}

func severityLabel(sev board.Severity, colorize bool) string {
	label := strings.ToUpper(sev.String())
	if !colorize {
		return label
	}
	switch sev {
	case board.Missed:
		return text.Colors{text.FgRed, text.Bold}.Sprint(label)
	case board.Active:
		return text.Colors{text.FgYellow, text.Bold}.Sprint(label)
	default:
		return text.FgGreen.Sprint(label)
	}
}

func muteSummary(state mute.State, now time.Time) string {
	if !state.IsMuted {
		return "on"
	}
	by := ""
	if state.MutedBy != "" {
		by = " by " + state.MutedBy
	}
	if left, ok := state.Remaining(now); ok {
		return fmt.Sprintf("muted%s, %d min remaining", by, mute.RemainingMinutes(left))
	}
	return "muted" + by + " indefinitely"
}
