// Package daemon coordinates a long-running display instance.
//
// It wires configuration, the three shared-document stores, the collision
// journal, the announcer and the polling scheduler into a single lifecycle,
// with flock-based locking on the station's local state directory so one
// station never runs two instances. The shared documents themselves are never
// locked; instances on different stations coordinate only through them.
//
// Operator actions (acknowledge, mute, reload) are routed through the
// scheduler loop while it runs so the next published view reflects them.
// The optional HTTP API exposes the same operations to a presentation layer.
package daemon
