// Package ack persists acknowledgments in the shared acknowledgment document.
//
// Writes are optimistic read-merge-write cycles without locking. A later
// acknowledgment of the same (date, manifest time, carrier) key replaces the
// record's latest fields and appends to its reason history; records are never
// deleted. Because the last full-document write wins, the store watches for
// lost updates: it re-merges once when the file changed between its read and
// its write, and after every reload it checks that its own writes survived.
// Both situations are logged and, when a sink is configured, journaled.
package ack
