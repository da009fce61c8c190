// Package api defines wire-format types and converters for the HTTP API and
// the CLI's JSON output. It translates board, acknowledgment, mute and
// journal models into transport-friendly DTOs that the presentation layer
// can render without coupling to internal types.
//
// # Key Types
//
// BoardView: the day's rows with status, acknowledgment and severity, plus the
// mute state and the composed announcement.
//
// Acknowledgment/HistoryEntry: the latest acknowledgment of a carrier and its
// reason history.
//
// MuteState: the shared mute document with the remaining minutes resolved.
//
// DaemonStatus: runtime information including the active cadence and
// preflight results.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Statuses
// and severities are exposed as their display strings. Timestamps use RFC3339
// with milliseconds; absent timestamps are omitted.
package api
