// Package mute coordinates the deployment-wide mute/snooze state kept in the
// shared mute document.
//
// Expiry is lazy: whoever reads a muted state whose unmute_at has passed
// persists the unmuted state before returning it, so correctness never
// depends on an in-memory timer surviving a restart.
package mute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"manifestboard/internal/logging"
	"manifestboard/internal/shared"
)

// State is the shared mute document.
type State struct {
	IsMuted     bool        `json:"is_muted"`
	MutedAt     shared.Time `json:"muted_at"`
	MutedBy     string      `json:"muted_by"`
	UnmuteAt    shared.Time `json:"unmute_at"`
	LastUpdated shared.Time `json:"last_updated"`
}

func unmuted() State {
	return State{}
}

// Expired reports whether a timed mute has run out at now.
func (s State) Expired(now time.Time) bool {
	return s.IsMuted && !s.UnmuteAt.IsZero() && !now.Before(s.UnmuteAt.Time)
}

// Remaining returns the time left on a timed mute. ok is false when unmuted
// or muted indefinitely.
func (s State) Remaining(now time.Time) (time.Duration, bool) {
	if !s.IsMuted || s.UnmuteAt.IsZero() {
		return 0, false
	}
	left := s.UnmuteAt.Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

// RemainingMinutes rounds a remaining duration up to whole minutes.
func RemainingMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}

// Options configures a Coordinator.
type Options struct {
	InstanceID string
	Collisions shared.CollisionSink
	Now        func() time.Time
}

// Coordinator reads and writes the mute document.
type Coordinator struct {
	doc        *shared.Document[State]
	detector   *shared.ChangeDetector
	logger     *slog.Logger
	collisions shared.CollisionSink
	instanceID string
	now        func() time.Time

	mu sync.Mutex
}

// NewCoordinator binds a coordinator to the mute document at path.
func NewCoordinator(path string, logger *slog.Logger, opts Options) *Coordinator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		doc:        shared.NewDocument(path, unmuted),
		detector:   shared.NewChangeDetector(path),
		logger:     logging.NewComponentLogger(logger, "mute"),
		collisions: opts.Collisions,
		instanceID: opts.InstanceID,
		now:        now,
	}
}

// Path returns the mute document location.
func (c *Coordinator) Path() string {
	return c.doc.Path()
}

// Changed reports whether the mute document changed since the last poll or
// the last write through this coordinator.
func (c *Coordinator) Changed() (bool, error) {
	return c.detector.Poll()
}

// Get returns the current state. An expired timed mute is flipped to
// unmuted and persisted first. Read failures yield the unmuted default.
func (c *Coordinator) Get(ctx context.Context) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, _ := c.get(ctx)
	return state
}

func (c *Coordinator) get(_ context.Context) (State, shared.Stamp) {
	state, result, err := c.doc.Read()
	if err != nil {
		var corrupt *shared.CorruptError
		if errors.As(err, &corrupt) && corrupt.Repeated {
			return unmuted(), result.Stamp
		}
		hint := "check that the shared directory is reachable"
		if corrupt != nil {
			hint = "the corrupt file was preserved as .bak; the next mute change rewrites it"
		}
		logging.WarnWithContext(c.logger, "mute state unreadable; assuming unmuted", "mute_read_failed",
			logging.String(logging.FieldDocument, c.doc.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "alerts sound until the mute state can be read"),
		)
		return unmuted(), result.Stamp
	}
	if result.Stamp.Exists {
		c.detector.Observe(result.Stamp)
	}

	now := c.now()
	if !state.Expired(now) {
		return state, result.Stamp
	}
	expiredBy := state.MutedBy
	state = unmuted()
	state.LastUpdated = shared.At(now)
	stamp, err := c.doc.Write(state)
	if err != nil {
		logging.WarnWithContext(c.logger, "persisting mute expiry failed", "mute_expiry_write_failed",
			logging.String(logging.FieldDocument, c.doc.Path()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another station will persist the expiry on its next read"),
			logging.String(logging.FieldImpact, "none; the mute is treated as expired locally"),
		)
		return state, result.Stamp
	}
	c.detector.Observe(stamp)
	c.logger.Info("timed mute expired",
		logging.String("muted_by", expiredBy),
		logging.String(logging.FieldEventType, "mute_expired"),
	)
	return state, stamp
}

// Set overwrites the mute document. A zero duration mutes indefinitely.
// Last writer wins.
func (c *Coordinator) Set(ctx context.Context, muted bool, user string, duration time.Duration) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(ctx, muted, user, duration)
}

func (c *Coordinator) set(_ context.Context, muted bool, user string, duration time.Duration) (State, error) {
	if duration < 0 {
		return State{}, fmt.Errorf("mute duration must not be negative")
	}
	now := shared.At(c.now())
	state := unmuted()
	state.LastUpdated = now
	if muted {
		state.IsMuted = true
		state.MutedAt = now
		state.MutedBy = strings.TrimSpace(user)
		if duration > 0 {
			state.UnmuteAt = shared.At(now.Add(duration))
		}
	}
	stamp, err := c.doc.Write(state)
	if err != nil {
		logging.ErrorWithContext(c.logger, "mute write failed", "mute_write_failed",
			logging.String(logging.FieldDocument, c.doc.Path()),
			logging.Bool("muted", muted),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the shared directory is mounted and writable, then retry"),
		)
		return State{}, err
	}
	c.detector.Observe(stamp)
	c.logger.Info("mute state changed",
		logging.Bool("muted", muted),
		logging.String("user", state.MutedBy),
		logging.Duration("duration", duration),
		logging.String(logging.FieldEventType, "mute_changed"),
	)
	return state, nil
}

// Toggle inverts the current state and returns the new state with a message
// for the operator.
func (c *Coordinator) Toggle(ctx context.Context, user string, duration time.Duration) (State, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, readStamp := c.get(ctx)
	if stamp, err := c.doc.Stat(); err == nil && readStamp.Exists && !stamp.Equal(readStamp) {
		c.reportCollision(ctx, "mute document changed between read and write")
	}
	next, err := c.set(ctx, !current.IsMuted, user, duration)
	if err != nil {
		return State{}, "", err
	}
	return next, Message(next, user, duration), nil
}

// TimeRemaining returns the time left on a timed mute.
func (c *Coordinator) TimeRemaining(ctx context.Context) (time.Duration, bool) {
	return c.Get(ctx).Remaining(c.now())
}

// Message describes a mute transition for the operator.
func Message(state State, user string, duration time.Duration) string {
	user = strings.TrimSpace(user)
	if user == "" {
		user = "unknown"
	}
	if !state.IsMuted {
		return "Alerts unmuted by " + user
	}
	if duration <= 0 {
		return "Alerts muted by " + user + " until unmuted"
	}
	minutes := RemainingMinutes(duration)
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Alerts muted by %s for %d %s", user, minutes, unit)
}

func (c *Coordinator) reportCollision(ctx context.Context, detail string) {
	logging.WarnWithContext(c.logger, "mute collision detected", "mute_collision",
		logging.String("collision_kind", shared.CollisionConcurrentWrite),
		logging.String(logging.FieldDocument, c.doc.Path()),
		logging.String("detail", detail),
		logging.String(logging.FieldInstanceID, c.instanceID),
		logging.String(logging.FieldErrorHint, "check the mute status; another station changed it at the same moment"),
		logging.String(logging.FieldImpact, "the last write wins"),
	)
	if c.collisions == nil {
		return
	}
	if err := c.collisions.RecordCollision(ctx, shared.Collision{
		Document: c.doc.Path(),
		Kind:     shared.CollisionConcurrentWrite,
		Key:      "mute",
		Detail:   detail,
	}); err != nil {
		c.logger.Debug("collision journal write failed", logging.Error(err))
	}
}
