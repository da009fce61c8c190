// Package notifications pushes board events to ntfy.
//
// Announcements, mute changes and failed shared-document writes can each be
// forwarded to a topic so supervisors away from the floor see what the
// displays are saying. When no topic is configured NewService returns a
// no-op implementation, so callers never need to check.
package notifications
