package ack

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"manifestboard/internal/shared"
	"manifestboard/internal/status"
)

// Key uniquely identifies an acknowledgment.
type Key struct {
	Date         string
	ManifestTime string
	Carrier      string
}

func (k Key) String() string {
	return k.Date + " " + k.ManifestTime + " " + k.Carrier
}

// NewKey normalizes the components the same way records are stored.
func NewKey(date, manifestTime, carrier string) Key {
	return Key{
		Date:         normalizeText(date),
		ManifestTime: canonicalTime(manifestTime),
		Carrier:      normalizeText(carrier),
	}
}

// HistoryEntry is one acknowledgment in a record's audit trail. Entries for
// Active acknowledgments carry no reason.
type HistoryEntry struct {
	Reason    string        `json:"reason"`
	User      string        `json:"user"`
	Timestamp shared.Time   `json:"timestamp"`
	Status    status.Status `json:"status,omitempty"`
}

// Record is the latest acknowledgment for a key plus its full history.
type Record struct {
	Date          string         `json:"date"`
	ManifestTime  string         `json:"manifest_time"`
	Carrier       string         `json:"carrier"`
	User          string         `json:"user"`
	Status        status.Status  `json:"status"`
	Reason        string         `json:"reason,omitempty"`
	Timestamp     shared.Time    `json:"timestamp"`
	ReasonHistory []HistoryEntry `json:"reason_history"`
}

// Key returns the record's identity.
func (r Record) Key() Key {
	return NewKey(r.Date, r.ManifestTime, r.Carrier)
}

// UnmarshalJSON accepts status_at_ack as an alias of status.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var raw struct {
		plain
		StatusAtAck status.Status `json:"status_at_ack"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec := Record(raw.plain)
	if rec.Status == "" {
		rec.Status = raw.StatusAtAck
	}
	if parsed, err := status.ParseStatus(string(rec.Status)); err == nil {
		rec.Status = parsed
	}
	if strings.TrimSpace(rec.Date) == "" || strings.TrimSpace(rec.ManifestTime) == "" || strings.TrimSpace(rec.Carrier) == "" {
		return fmt.Errorf("acknowledgment missing key fields")
	}
	if rec.ReasonHistory == nil {
		rec.ReasonHistory = []HistoryEntry{}
	}
	*r = rec
	return nil
}

// collection is the on-disk array. Elements that do not decode as records
// are retained verbatim and written back so one bad entry never destroys
// another instance's data.
type collection struct {
	records []Record
	invalid []json.RawMessage
}

func emptyCollection() collection {
	return collection{records: []Record{}}
}

func (c collection) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(c.records)+len(c.invalid))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	for _, raw := range c.invalid {
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func (c *collection) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := emptyCollection()
	for _, item := range items {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil {
			out.invalid = append(out.invalid, item)
			continue
		}
		out.records = append(out.records, rec)
	}
	*c = out
	return nil
}

func (c collection) find(key Key) int {
	for i, rec := range c.records {
		if rec.Key() == key {
			return i
		}
	}
	return -1
}

func normalizeText(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

func canonicalTime(value string) string {
	value = normalizeText(value)
	if clock, err := status.ParseClock(value); err == nil {
		return clock.String()
	}
	return value
}
