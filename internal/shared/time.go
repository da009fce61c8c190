package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Time is a timestamp as stored in shared documents. The zero value encodes
// as JSON null. Decoding accepts RFC 3339 and the naive ISO layouts older
// writers produced, interpreting the latter in local time.
type Time struct {
	time.Time
}

// At wraps t, dropping the monotonic reading.
func At(t time.Time) Time {
	return Time{Time: t.Round(0)}
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses a shared document timestamp.
func ParseTime(value string) (Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return Time{Time: t}, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return Time{Time: t}, nil
		}
	}
	return Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Ptr returns nil for the zero time so optional fields render cleanly in
// API payloads.
func (t Time) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
