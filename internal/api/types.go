package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Entry is one manifest/carrier row of the board.
type Entry struct {
	Time           string          `json:"time"`
	Carrier        string          `json:"carrier"`
	Status         string          `json:"status"`
	WindowStart    string          `json:"windowStart,omitempty"`
	WindowEnd      string          `json:"windowEnd,omitempty"`
	NeedsAttention bool            `json:"needsAttention"`
	Acknowledgment *Acknowledgment `json:"acknowledgment,omitempty"`
}

// Acknowledgment is the latest acknowledgment of a carrier.
type Acknowledgment struct {
	Date         string         `json:"date"`
	ManifestTime string         `json:"manifestTime"`
	Carrier      string         `json:"carrier"`
	User         string         `json:"user"`
	Status       string         `json:"status"`
	Reason       string         `json:"reason,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	History      []HistoryEntry `json:"history"`
}

// HistoryEntry is one acknowledgment in a reason history.
type HistoryEntry struct {
	User      string `json:"user"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MuteState mirrors the shared mute document.
type MuteState struct {
	Muted            bool   `json:"muted"`
	MutedBy          string `json:"mutedBy,omitempty"`
	MutedAt          string `json:"mutedAt,omitempty"`
	UnmuteAt         string `json:"unmuteAt,omitempty"`
	LastUpdated      string `json:"lastUpdated,omitempty"`
	Indefinite       bool   `json:"indefinite"`
	RemainingMinutes int    `json:"remainingMinutes"`
}

// Cadence reports the polling intervals in effect.
type Cadence struct {
	AckPollMS int64 `json:"ackPollMs"`
	RefreshMS int64 `json:"refreshMs"`
}

// BoardView is the board at one instant.
type BoardView struct {
	Date           string         `json:"date"`
	GeneratedAt    string         `json:"generatedAt"`
	Severity       string         `json:"severity"`
	Unacknowledged int            `json:"unacknowledged"`
	Counts         map[string]int `json:"counts"`
	Entries        []Entry        `json:"entries"`
	Mute           MuteState      `json:"mute"`
	Announcement   string         `json:"announcement,omitempty"`
	Cadence        *Cadence       `json:"cadence,omitempty"`
}

// AckRequest acknowledges a carrier. Date defaults to today and User to the
// station user.
type AckRequest struct {
	Date         string `json:"date,omitempty"`
	ManifestTime string `json:"manifestTime"`
	Carrier      string `json:"carrier"`
	User         string `json:"user,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// AckResponse wraps the stored acknowledgment.
type AckResponse struct {
	Acknowledgment Acknowledgment `json:"acknowledgment"`
}

// HistoryResponse wraps a carrier's reason history.
type HistoryResponse struct {
	Date         string         `json:"date"`
	ManifestTime string         `json:"manifestTime"`
	Carrier      string         `json:"carrier"`
	Entries      []HistoryEntry `json:"entries"`
}

// MuteRequest sets the mute state. Minutes of zero mutes indefinitely.
type MuteRequest struct {
	Muted   bool   `json:"muted"`
	Minutes int    `json:"minutes,omitempty"`
	User    string `json:"user,omitempty"`
}

// MuteToggleRequest flips the mute state.
type MuteToggleRequest struct {
	Minutes int    `json:"minutes,omitempty"`
	User    string `json:"user,omitempty"`
}

// MuteResponse wraps the new mute state with an operator message.
type MuteResponse struct {
	State   MuteState `json:"state"`
	Message string    `json:"message,omitempty"`
}

// Collision is one journaled lost-update collision.
type Collision struct {
	ID         int64  `json:"id"`
	DetectedAt string `json:"detectedAt"`
	InstanceID string `json:"instanceId"`
	Document   string `json:"document"`
	Kind       string `json:"kind"`
	Key        string `json:"key,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// CollisionsResponse wraps recent collisions and the journal total.
type CollisionsResponse struct {
	Collisions []Collision `json:"collisions"`
	Total      int         `json:"total"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	InstanceID   string        `json:"instanceId"`
	Station      string        `json:"station"`
	User         string        `json:"user"`
	StartedAt    string        `json:"startedAt,omitempty"`
	SharedDir    string        `json:"sharedDir"`
	LockFilePath string        `json:"lockFilePath"`
	JournalPath  string        `json:"journalPath,omitempty"`
	Severity     string        `json:"severity"`
	Cadence      Cadence       `json:"cadence"`
	Checks       []CheckResult `json:"checks"`
}
