// Package scheduler runs a display instance's adaptive polling loop.
//
// One goroutine owns the board state. It polls the shared acknowledgment and
// mute documents for changes, rebuilds the view on a full-refresh timer, and
// switches between a quiet cadence and a faster alerting cadence whenever the
// board's severity changes. Operator actions are submitted into the loop with
// Do so they are serialized with polling and always observed by the next
// view (read-your-writes within an instance).
//
// Across instances there is no ordering; convergence is bounded by the ack
// poll interval. A filesystem watch can be enabled as a hint to poll early,
// but polling remains authoritative because network filesystems rarely
// deliver change notifications.
package scheduler
