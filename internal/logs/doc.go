// Package logs reads the station's JSON log files for the `manifestboard logs`
// command.
//
// Tail returns the last N lines of a file and an offset that a follow loop
// passes back to pick up only what was appended since. Filter narrows the
// decoded records by component, level, event type, or carrier so an operator
// can isolate, for example, every collision on the acknowledgment document.
package logs
