package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"manifestboard/internal/ack"
	"manifestboard/internal/announce"
	"manifestboard/internal/board"
	"manifestboard/internal/logging"
	"manifestboard/internal/mute"
	"manifestboard/internal/schedule"
	"manifestboard/internal/shared"
	"manifestboard/internal/status"
)

var (
	// ErrStopped is returned by Do once the loop has exited.
	ErrStopped = errors.New("scheduler stopped")
	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("scheduler already running")

	errNothingWatched = errors.New("no shared directory could be watched")
)

// Cadence is one pair of polling intervals.
type Cadence struct {
	AckPoll time.Duration
	Refresh time.Duration
}

// DefaultQuiet is the cadence while nothing needs attention.
func DefaultQuiet() Cadence {
	return Cadence{AckPoll: 2 * time.Second, Refresh: 10 * time.Second}
}

// DefaultAlerting is the cadence while at least one carrier is alerting.
func DefaultAlerting() Cadence {
	return Cadence{AckPoll: 500 * time.Millisecond, Refresh: 2 * time.Second}
}

// ScheduleSource supplies the day's manifest definitions.
type ScheduleSource interface {
	Manifests(now time.Time) ([]schedule.Manifest, error)
}

// AckSource is the slice of the acknowledgment store the loop polls.
type AckSource interface {
	Path() string
	Changed() (bool, error)
	QueryDate(ctx context.Context, date string) ([]ack.Record, error)
}

// MuteSource is the slice of the mute coordinator the loop polls.
type MuteSource interface {
	Path() string
	Changed() (bool, error)
	Get(ctx context.Context) mute.State
}

// Presenter receives every rebuilt view. It is called on the loop goroutine
// and must not block.
type Presenter interface {
	Present(view board.View)
}

// Announcer receives the alerts of every rebuilt view.
type Announcer interface {
	Update(ctx context.Context, alerts []status.Alert, muted bool) announce.Announcement
}

// Options configures a Scheduler. Zero cadences fall back to the defaults.
type Options struct {
	Quiet     Cadence
	Alerting  Cadence
	MutePoll  time.Duration
	Windows   status.Windows
	Watch     bool
	Now       func() time.Time
	Presenter Presenter
	Announcer Announcer
}

type action struct {
	fn     func(context.Context) error
	result chan error
}

// Scheduler is the per-instance event loop.
type Scheduler struct {
	schedule ScheduleSource
	acks     AckSource
	mute     MuteSource
	logger   *slog.Logger
	opts     Options

	actions chan action
	done    chan struct{}
	running atomic.Bool

	mu      sync.RWMutex
	view    board.View
	ready   bool
	cadence Cadence

	// Owned by the loop goroutine.
	manifests []schedule.Manifest
	records   []ack.Record
	muteState mute.State
	severity  board.Severity
	failing   map[string]bool
	unsnooze  *time.Timer
}

// New builds a scheduler over the three shared documents.
func New(sched ScheduleSource, acks AckSource, muteSrc MuteSource, logger *slog.Logger, opts Options) *Scheduler {
	if opts.Quiet.AckPoll <= 0 || opts.Quiet.Refresh <= 0 {
		opts.Quiet = DefaultQuiet()
	}
	if opts.Alerting.AckPoll <= 0 || opts.Alerting.Refresh <= 0 {
		opts.Alerting = DefaultAlerting()
	}
	if opts.MutePoll <= 0 {
		opts.MutePoll = time.Second
	}
	if opts.Windows == (status.Windows{}) {
		opts.Windows = status.DefaultWindows()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		schedule: sched,
		acks:     acks,
		mute:     muteSrc,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		opts:     opts,
		actions:  make(chan action),
		done:     make(chan struct{}),
		cadence:  opts.Quiet,
		failing:  make(map[string]bool),
	}
}

// View returns the latest published view. ok is false until the first
// refresh completes.
func (s *Scheduler) View() (board.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.ready
}

// Cadence returns the intervals currently in effect.
func (s *Scheduler) Cadence() Cadence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cadence
}

// Do runs fn on the loop goroutine, then refreshes the view so the next
// published view reflects fn's writes. It returns fn's error.
func (s *Scheduler) Do(ctx context.Context, fn func(context.Context) error) error {
	act := action{fn: fn, result: make(chan error, 1)}
	select {
	case s.actions <- act:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-act.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the loop until ctx is cancelled. It returns nil on
// cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)

	// Prime the change detectors so the first poll is never mistaken for an
	// external write.
	_, _ = s.acks.Changed()
	_, _ = s.mute.Changed()
	s.refresh(ctx)

	cadence := s.Cadence()
	ackTimer := time.NewTimer(cadence.AckPoll)
	refreshTimer := time.NewTimer(cadence.Refresh)
	muteTicker := time.NewTicker(s.opts.MutePoll)
	defer func() {
		ackTimer.Stop()
		refreshTimer.Stop()
		muteTicker.Stop()
		if s.unsnooze != nil {
			s.unsnooze.Stop()
		}
	}()

	var watcher *hintWatcher
	if s.opts.Watch {
		w, err := newHintWatcher(s.logger, s.acks.Path(), s.mute.Path())
		if err != nil {
			s.logger.Warn("filesystem watch unavailable; polling only",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_unavailable"),
				logging.String(logging.FieldImpact, "changes from other stations appear on the next poll"),
			)
		} else {
			watcher = w
			defer watcher.Close()
		}
	}

	rearm := func() {
		c := s.Cadence()
		ackTimer.Reset(c.AckPoll)
		refreshTimer.Reset(c.Refresh)
	}

	s.logger.Info("scheduler started",
		logging.String("severity", s.severity.String()),
		logging.Duration("ack_poll", cadence.AckPoll),
		logging.Duration("refresh", cadence.Refresh),
		logging.Bool("watch", watcher != nil),
		logging.String(logging.FieldEventType, "scheduler_started"),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
			return nil

		case <-ackTimer.C:
			if s.pollAcks(ctx) {
				rearm()
				continue
			}
			ackTimer.Reset(s.Cadence().AckPoll)

		case <-refreshTimer.C:
			if s.refresh(ctx) {
				rearm()
				continue
			}
			refreshTimer.Reset(s.Cadence().Refresh)

		case <-muteTicker.C:
			if s.pollMute(ctx) {
				rearm()
			}

		case <-timerC(s.unsnooze):
			s.unsnooze = nil
			s.logger.Debug("unsnooze timer fired")
			if s.refresh(ctx) {
				rearm()
			}

		case <-watcher.Hints():
			changed := s.pollAcks(ctx)
			if s.pollMute(ctx) {
				changed = true
			}
			if changed {
				rearm()
			}

		case act := <-s.actions:
			err := act.fn(ctx)
			if s.refresh(ctx) {
				rearm()
			}
			act.result <- err
		}
	}
}

// refresh reloads all three documents and rebuilds the view. It reports
// whether the severity changed.
func (s *Scheduler) refresh(ctx context.Context) bool {
	now := s.opts.Now()
	manifests, err := s.schedule.Manifests(now)
	s.track(ctx, "schedule_load", "schedule unreadable; keeping last known schedule", err)
	s.manifests = manifests

	s.loadAcks(ctx, now)
	s.setMute(s.mute.Get(ctx))
	return s.rebuild(ctx, now)
}

// pollAcks reloads acknowledgments when the document changed.
func (s *Scheduler) pollAcks(ctx context.Context) bool {
	changed, err := s.acks.Changed()
	s.track(ctx, "ack_poll", "acknowledgment document unreachable; retrying", err)
	if !changed {
		return false
	}
	now := s.opts.Now()
	s.logger.Debug("acknowledgments changed externally",
		logging.String(logging.FieldEventType, "ack_document_changed"),
	)
	s.loadAcks(ctx, now)
	return s.rebuild(ctx, now)
}

// pollMute reloads the mute state when the document changed.
func (s *Scheduler) pollMute(ctx context.Context) bool {
	changed, err := s.mute.Changed()
	s.track(ctx, "mute_poll", "mute document unreachable; retrying", err)
	if !changed {
		return false
	}
	s.setMute(s.mute.Get(ctx))
	return s.rebuild(ctx, s.opts.Now())
}

func (s *Scheduler) loadAcks(ctx context.Context, now time.Time) {
	records, err := s.acks.QueryDate(ctx, now.Format(time.DateOnly))
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		s.track(ctx, "ack_load", "acknowledgments unreadable; keeping last known set", err)
		return
	}
	s.track(ctx, "ack_load", "", nil)
	s.records = records
}

func (s *Scheduler) setMute(state mute.State) {
	s.muteState = state
	if s.unsnooze != nil {
		s.unsnooze.Stop()
		s.unsnooze = nil
	}
	if left, ok := state.Remaining(s.opts.Now()); ok {
		s.unsnooze = time.NewTimer(left)
	}
}

// rebuild derives the view and publishes it. It reports whether the
// severity changed, in which case the cadence has already been switched.
func (s *Scheduler) rebuild(ctx context.Context, now time.Time) bool {
	view := board.Build(s.manifests, s.records, now, s.opts.Windows, s.muteState)

	s.mu.Lock()
	first := !s.ready
	changed := !first && view.Severity != s.severity
	s.view = view
	s.ready = true
	if first || changed {
		s.cadence = s.cadenceFor(view.Severity)
	}
	cadence := s.cadence
	s.mu.Unlock()

	if changed {
		s.logger.Info("severity changed",
			logging.String("from", s.severity.String()),
			logging.String("to", view.Severity.String()),
			logging.Duration("ack_poll", cadence.AckPoll),
			logging.Duration("refresh", cadence.Refresh),
			logging.String(logging.FieldEventType, "severity_changed"),
		)
	}
	s.severity = view.Severity

	if s.opts.Presenter != nil {
		s.opts.Presenter.Present(view)
	}
	if s.opts.Announcer != nil {
		s.opts.Announcer.Update(ctx, view.Alerts(), view.Mute.IsMuted)
	}
	return changed
}

func (s *Scheduler) cadenceFor(sev board.Severity) Cadence {
	if sev.Alerting() {
		return s.opts.Alerting
	}
	return s.opts.Quiet
}

// track logs a failing operation once and its recovery once, so an outage of
// the share does not flood the log at the alerting cadence.
func (s *Scheduler) track(_ context.Context, op, message string, err error) {
	if err == nil || errors.Is(err, shared.ErrCorrupt) {
		if s.failing[op] {
			delete(s.failing, op)
			s.logger.Info("shared document reachable again",
				logging.String("operation", op),
				logging.String(logging.FieldEventType, "share_recovered"),
			)
		}
		return
	}
	if s.failing[op] {
		return
	}
	s.failing[op] = true
	logging.WarnWithContext(s.logger, message, op+"_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the shared directory is mounted"),
		logging.String(logging.FieldImpact, "the board shows the last known state until the share recovers"),
	)
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
