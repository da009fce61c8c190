package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"manifestboard/internal/logging"
)

// Record is one decoded JSON log line.
type Record struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	EventType string
	Attrs     map[string]any
	Raw       string
}

// Filters are optional predicates applied to decoded records. Empty fields
// match everything.
type Filters struct {
	Component string
	// Level is a floor: "warn" keeps warnings and errors.
	Level     string
	EventType string
	Carrier   string
	Search    string
}

// Empty reports whether no predicate is set.
func (f Filters) Empty() bool {
	return strings.TrimSpace(f.Component) == "" &&
		strings.TrimSpace(f.Level) == "" &&
		strings.TrimSpace(f.EventType) == "" &&
		strings.TrimSpace(f.Carrier) == "" &&
		strings.TrimSpace(f.Search) == ""
}

// Parse decodes one JSON log line.
func Parse(line string) (Record, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Record{}, fmt.Errorf("decode log line: %w", err)
	}
	rec := Record{Raw: line, Attrs: make(map[string]any)}
	for key, value := range fields {
		switch key {
		case "ts", slog.TimeKey:
			if s, ok := value.(string); ok {
				rec.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case slog.LevelKey:
			rec.Level, _ = value.(string)
		case slog.MessageKey:
			rec.Message, _ = value.(string)
		case logging.FieldComponent:
			rec.Component, _ = value.(string)
		case logging.FieldEventType:
			rec.EventType, _ = value.(string)
		default:
			rec.Attrs[key] = value
		}
	}
	return rec, nil
}

// Match reports whether rec satisfies every set predicate.
func (f Filters) Match(rec Record) bool {
	if c := strings.TrimSpace(f.Component); c != "" && !strings.EqualFold(c, rec.Component) {
		return false
	}
	if lvl := strings.TrimSpace(f.Level); lvl != "" && logging.ParseLevel(rec.Level) < logging.ParseLevel(lvl) {
		return false
	}
	if e := strings.TrimSpace(f.EventType); e != "" && !strings.EqualFold(e, rec.EventType) {
		return false
	}
	if c := strings.TrimSpace(f.Carrier); c != "" {
		carrier, _ := rec.Attrs[logging.FieldCarrier].(string)
		if !strings.EqualFold(c, carrier) {
			return false
		}
	}
	if s := strings.TrimSpace(f.Search); s != "" && !strings.Contains(strings.ToLower(rec.Raw), strings.ToLower(s)) {
		return false
	}
	return true
}

// Apply filters raw lines. Lines that are not JSON are kept only when no
// predicate is set.
func (f Filters) Apply(lines []string) []Record {
	out := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, err := Parse(line)
		if err != nil {
			if f.Empty() {
				out = append(out, Record{Raw: line, Message: line})
			}
			continue
		}
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Format renders a record as a single console line.
func Format(rec Record) string {
	if rec.Time.IsZero() && rec.Level == "" {
		return rec.Raw
	}
	var b strings.Builder
	b.WriteString(rec.Time.Local().Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(rec.Level))
	if rec.Component != "" {
		b.WriteString(" [" + rec.Component + "]")
	}
	b.WriteByte(' ')
	b.WriteString(rec.Message)
	if rec.EventType != "" {
		b.WriteString(" event=" + rec.EventType)
	}
	keys := make([]string, 0, len(rec.Attrs))
	for key := range rec.Attrs {
		if key == slog.SourceKey {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, rec.Attrs[key])
	}
	return b.String()
}
