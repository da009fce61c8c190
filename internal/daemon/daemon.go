package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"manifestboard/internal/ack"
	"manifestboard/internal/announce"
	"manifestboard/internal/board"
	"manifestboard/internal/config"
	"manifestboard/internal/journal"
	"manifestboard/internal/logging"
	"manifestboard/internal/mute"
	"manifestboard/internal/notifications"
	"manifestboard/internal/preflight"
	"manifestboard/internal/schedule"
	"manifestboard/internal/scheduler"
	"manifestboard/internal/shared"
	"manifestboard/internal/speech"
	"manifestboard/internal/status"
)

var (
	// ErrNotActive is returned when acknowledging a carrier whose window has
	// not opened yet.
	ErrNotActive = errors.New("manifest is not active yet")
	// ErrNotScheduled is returned when acknowledging a carrier that is not on
	// the schedule at that time.
	ErrNotScheduled = errors.New("carrier not scheduled at that time")
)

// Options overrides collaborators. Zero values use the config-driven defaults.
type Options struct {
	InstanceID string
	Presenter  scheduler.Presenter
	Ticker     announce.Ticker
	Speaker    announce.Speaker
	Notifier   notifications.Service
	Now        func() time.Time
}

// Daemon owns one display instance.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	instanceID string
	now        func() time.Time
	windows    status.Windows

	schedule  *schedule.Store
	acks      *ack.Store
	mute      *mute.Coordinator
	journal   *journal.Journal
	notifier  notifications.Service
	announcer *announce.Announcer
	presenter scheduler.Presenter
	scheduler *scheduler.Scheduler
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	notifyWG  sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	InstanceID   string
	StartedAt    time.Time
	LockFilePath string
	JournalPath  string
	Severity     board.Severity
	Cadence      scheduler.Cadence
	Checks       []preflight.Result
}

// AckRequest acknowledges one carrier. Date defaults to today and User to
// the station user.
type AckRequest struct {
	Date         string
	ManifestTime string
	Carrier      string
	User         string
	Reason       string
}

// New constructs a daemon with initialized dependencies. A journal that
// cannot be opened disables collision journaling but is not fatal.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	instanceID := strings.TrimSpace(opts.InstanceID)
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger = logger.With(
		logging.String(logging.FieldInstanceID, instanceID),
		logging.String(logging.FieldStation, cfg.Station.User),
	)

	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		instanceID: instanceID,
		now:        now,
		windows:    status.Windows{Lead: cfg.LeadWindow(), Grace: cfg.GraceWindow()},
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}

	var sink shared.CollisionSink
	if cfg.Sync.LogCollisions {
		j, err := journal.Open(cfg.JournalPath(), instanceID)
		if err != nil {
			logging.WarnWithContext(logger, "collision journal unavailable", "journal_open_failed",
				logging.String("path", cfg.JournalPath()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
				logging.String(logging.FieldImpact, "collisions are logged but not journaled"),
			)
		} else {
			d.journal = j
			sink = j
		}
	}

	d.notifier = opts.Notifier
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	speaker := opts.Speaker
	if speaker == nil {
		speaker = speech.FromConfig(cfg, logger)
	}

	d.schedule = schedule.NewStore(cfg.ScheduleFile(), logger)
	d.acks = ack.NewStore(cfg.AcknowledgmentsFile(), logger, ack.Options{InstanceID: instanceID, Collisions: sink, Now: now})
	d.mute = mute.NewCoordinator(cfg.MuteFile(), logger, mute.Options{InstanceID: instanceID, Collisions: sink, Now: now})

	var notifier announce.Notifier
	if cfg.Notifications.Announcements {
		notifier = d.notifier
	}
	d.announcer = announce.NewAnnouncer(logger, announce.Options{
		Enabled:  cfg.Announcements.Enabled,
		Cooldown: cfg.AnnouncementCooldown(),
		Ticker:   opts.Ticker,
		Speaker:  speaker,
		Notifier: notifier,
		Now:      now,
	})
	d.presenter = opts.Presenter
	d.scheduler = d.newScheduler()
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// newScheduler builds a loop over the daemon's stores. A scheduler runs
// once, so every Start gets a fresh one.
func (d *Daemon) newScheduler() *scheduler.Scheduler {
	cadences := d.cfg.Sync
	return scheduler.New(d.schedule, d.acks, d.mute, d.logger, scheduler.Options{
		Quiet: scheduler.Cadence{
			AckPoll: time.Duration(cadences.QuietAckPollMS) * time.Millisecond,
			Refresh: time.Duration(cadences.QuietRefreshMS) * time.Millisecond,
		},
		Alerting: scheduler.Cadence{
			AckPoll: time.Duration(cadences.AlertingAckPollMS) * time.Millisecond,
			Refresh: time.Duration(cadences.AlertingRefreshMS) * time.Millisecond,
		},
		MutePoll:  time.Duration(cadences.MutePollMS) * time.Millisecond,
		Windows:   d.windows,
		Watch:     cadences.Watch,
		Now:       d.now,
		Presenter: d.presenter,
		Announcer: d.announcer,
	})
}

// InstanceID identifies this instance in logs and the collision journal.
func (d *Daemon) InstanceID() string {
	return d.instanceID
}

// Start acquires the station lock, starts the scheduler loop and the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another manifestboard instance is already running on this station")
	}

	loop := d.newScheduler()
	d.scheduler = loop

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}

	d.cancel = cancel
	d.startedAt = d.now()
	d.running.Store(true)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := loop.Run(runCtx); err != nil {
			d.logger.Error("scheduler exited", logging.Error(err))
		}
	}()

	d.logger.Info("manifestboard daemon started",
		logging.String("lock", d.lockPath),
		logging.String("shared_dir", d.cfg.Paths.SharedDir),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops the scheduler and the API and releases the station lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	d.announcer.Wait()
	d.notifyWG.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("manifestboard daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon. It waits for notifications
// sent by one-shot operations on a daemon that was never started.
func (d *Daemon) Close() error {
	d.Stop()
	d.notifyWG.Wait()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// Running reports whether the scheduler loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// do runs fn through the scheduler loop when it is running so the next view
// reflects the write, and directly otherwise.
func (d *Daemon) do(ctx context.Context, fn func(context.Context) error) error {
	if !d.running.Load() {
		return fn(ctx)
	}
	err := d.scheduler.Do(ctx, fn)
	if errors.Is(err, scheduler.ErrStopped) {
		return fn(ctx)
	}
	return err
}

// Acknowledge records an acknowledgment. The status is computed from the
// clock at acknowledgment time: Open carriers cannot be acknowledged and
// Missed carriers need a reason.
func (d *Daemon) Acknowledge(ctx context.Context, req AckRequest) (ack.Record, error) {
	now := d.now()
	if strings.TrimSpace(req.Date) == "" {
		req.Date = now.Format(time.DateOnly)
	}
	if strings.TrimSpace(req.User) == "" {
		req.User = d.cfg.Station.User
	}
	clock, err := status.ParseClock(req.ManifestTime)
	if err != nil {
		return ack.Record{}, fmt.Errorf("%w: %v", ack.ErrInvalid, err)
	}
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(req.Date), now.Location())
	if err != nil {
		return ack.Record{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ack.ErrInvalid, req.Date)
	}
	if err := d.checkScheduled(now, clock, req.Carrier); err != nil {
		return ack.Record{}, err
	}
	st := d.statusOn(clock, day, now)
	if st == status.Open {
		return ack.Record{}, fmt.Errorf("%w: %s %s opens at %s", ErrNotActive, strings.TrimSpace(req.Carrier), clock,
			clock.On(day).Add(-d.windows.Lead).Format("15:04"))
	}

	var rec ack.Record
	err = d.do(ctx, func(ctx context.Context) error {
		var recErr error
		rec, recErr = d.acks.Record(ctx, ack.Acknowledgment{
			Date:         req.Date,
			ManifestTime: clock.String(),
			Carrier:      req.Carrier,
			User:         req.User,
			Status:       st,
			Reason:       req.Reason,
		})
		return recErr
	})
	if err != nil {
		if !errors.Is(err, ack.ErrInvalid) {
			d.notifyWriteFailed(d.acks.Path(), err)
		}
		return ack.Record{}, err
	}
	return rec, nil
}

func (d *Daemon) checkScheduled(now time.Time, clock status.Clock, carrier string) error {
	manifests, err := d.schedule.Manifests(now)
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		return fmt.Errorf("load schedule: %w", err)
	}
	key := ack.NewKey("", clock.String(), carrier)
	for _, m := range manifests {
		for _, c := range m.Carriers {
			if ack.NewKey("", m.Time, c) == key {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s at %s", ErrNotScheduled, strings.TrimSpace(carrier), clock)
}

// statusOn classifies a manifest on day as seen at now.
func (d *Daemon) statusOn(clock status.Clock, day, now time.Time) status.Status {
	at := clock.On(day)
	switch {
	case now.Before(at.Add(-d.windows.Lead)):
		return status.Open
	case now.Before(at.Add(d.windows.Grace)):
		return status.Active
	default:
		return status.Missed
	}
}

// SetMute overwrites the shared mute state. A zero duration mutes
// indefinitely.
func (d *Daemon) SetMute(ctx context.Context, muted bool, user string, duration time.Duration) (mute.State, string, error) {
	if strings.TrimSpace(user) == "" {
		user = d.cfg.Station.User
	}
	var state mute.State
	err := d.do(ctx, func(ctx context.Context) error {
		var setErr error
		state, setErr = d.mute.Set(ctx, muted, user, duration)
		return setErr
	})
	if err != nil {
		d.notifyWriteFailed(d.mute.Path(), err)
		return mute.State{}, "", err
	}
	message := mute.Message(state, user, duration)
	d.notifyMute(message, state.IsMuted)
	return state, message, nil
}

// ToggleMute flips the shared mute state.
func (d *Daemon) ToggleMute(ctx context.Context, user string, duration time.Duration) (mute.State, string, error) {
	if strings.TrimSpace(user) == "" {
		user = d.cfg.Station.User
	}
	var (
		state   mute.State
		message string
	)
	err := d.do(ctx, func(ctx context.Context) error {
		var toggleErr error
		state, message, toggleErr = d.mute.Toggle(ctx, user, duration)
		return toggleErr
	})
	if err != nil {
		d.notifyWriteFailed(d.mute.Path(), err)
		return mute.State{}, "", err
	}
	d.notifyMute(message, state.IsMuted)
	return state, message, nil
}

// MuteState returns the current shared mute state.
func (d *Daemon) MuteState(ctx context.Context) mute.State {
	return d.mute.Get(ctx)
}

// View returns the latest published view, or builds one from the shared
// documents when the loop has not published yet.
func (d *Daemon) View(ctx context.Context) (board.View, error) {
	if view, ok := d.scheduler.View(); ok && d.running.Load() {
		return view, nil
	}
	now := d.now()
	manifests, err := d.schedule.Manifests(now)
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		return board.View{}, fmt.Errorf("load schedule: %w", err)
	}
	records, err := d.acks.QueryDate(ctx, now.Format(time.DateOnly))
	if err != nil && !errors.Is(err, shared.ErrCorrupt) {
		return board.View{}, fmt.Errorf("load acknowledgments: %w", err)
	}
	return board.Build(manifests, records, now, d.windows, d.mute.Get(ctx)), nil
}

// Announcement composes the announcement for view.
func (d *Daemon) Announcement(view board.View) announce.Announcement {
	return announce.Compose(view.Alerts(), d.now())
}

// History returns the reason history of one carrier.
func (d *Daemon) History(ctx context.Context, date, manifestTime, carrier string) ([]ack.HistoryEntry, error) {
	if strings.TrimSpace(date) == "" {
		date = d.now().Format(time.DateOnly)
	}
	return d.acks.History(ctx, date, manifestTime, carrier)
}

// Collisions returns the most recent journaled collisions and the total.
func (d *Daemon) Collisions(ctx context.Context, limit int) ([]journal.Entry, int, error) {
	if d.journal == nil {
		return nil, 0, nil
	}
	entries, err := d.journal.Recent(ctx, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := d.journal.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// PruneCollisions drops journaled collisions older than retention.
func (d *Daemon) PruneCollisions(ctx context.Context, retention time.Duration) (int64, error) {
	if d.journal == nil || retention <= 0 {
		return 0, nil
	}
	return d.journal.Prune(ctx, d.now().Add(-retention))
}

// Reload forces the schedule to be re-read and the view rebuilt.
func (d *Daemon) Reload(ctx context.Context) error {
	d.schedule.Reload()
	d.logger.Info("reload requested", logging.String(logging.FieldEventType, "reload_requested"))
	if !d.running.Load() {
		return nil
	}
	err := d.scheduler.Do(ctx, func(context.Context) error { return nil })
	if errors.Is(err, scheduler.ErrStopped) {
		return nil
	}
	return err
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	st := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		InstanceID:   d.instanceID,
		StartedAt:    d.startedAt,
		LockFilePath: d.lockPath,
		Cadence:      d.scheduler.Cadence(),
		Checks:       preflight.RunAll(ctx, d.cfg),
	}
	if d.journal != nil {
		st.JournalPath = d.journal.Path()
	}
	if view, ok := d.scheduler.View(); ok {
		st.Severity = view.Severity
	}
	return st
}

func (d *Daemon) notifyMute(message string, muted bool) {
	if !d.cfg.Notifications.MuteChanges {
		return
	}
	d.background(func(ctx context.Context) error {
		return d.notifier.NotifyMuteChanged(ctx, message, muted)
	})
}

func (d *Daemon) notifyWriteFailed(document string, err error) {
	if !d.cfg.Notifications.Errors {
		return
	}
	d.background(func(ctx context.Context) error {
		return d.notifier.NotifyWriteFailed(ctx, document, err)
	})
}

// background sends a notification off the caller's goroutine so a slow ntfy
// server never delays an operator action.
func (d *Daemon) background(fn func(context.Context) error) {
	d.notifyWG.Add(1)
	go func() {
		defer d.notifyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.logger.Debug("notification failed", logging.Error(err))
		}
	}()
}
