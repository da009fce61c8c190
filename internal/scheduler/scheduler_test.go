package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"manifestboard/internal/ack"
	"manifestboard/internal/announce"
	"manifestboard/internal/board"
	"manifestboard/internal/logging"
	"manifestboard/internal/mute"
	"manifestboard/internal/schedule"
	"manifestboard/internal/scheduler"
	"manifestboard/internal/shared"
	"manifestboard/internal/status"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingPresenter struct {
	mu    sync.Mutex
	views []board.View
}

func (p *recordingPresenter) Present(view board.View) {
	p.mu.Lock()
	p.views = append(p.views, view)
	p.mu.Unlock()
}

func (p *recordingPresenter) last() (board.View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.views) == 0 {
		return board.View{}, false
	}
	return p.views[len(p.views)-1], true
}

type recordingAnnouncer struct {
	mu     sync.Mutex
	alerts [][]status.Alert
	muted  []bool
}

func (a *recordingAnnouncer) Update(_ context.Context, alerts []status.Alert, muted bool) announce.Announcement {
	a.mu.Lock()
	a.alerts = append(a.alerts, alerts)
	a.muted = append(a.muted, muted)
	a.mu.Unlock()
	return announce.Announcement{}
}

func (a *recordingAnnouncer) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

type fixture struct {
	dir       string
	schedule  *schedule.Store
	acks      *ack.Store
	mute      *mute.Coordinator
	presenter *recordingPresenter
	announcer *recordingAnnouncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := logging.NewNop()
	return &fixture{
		dir:       dir,
		schedule:  schedule.NewStore(filepath.Join(dir, "manifest_config.json"), logger),
		acks:      ack.NewStore(filepath.Join(dir, "acknowledgments.json"), logger, ack.Options{InstanceID: "local"}),
		mute:      mute.NewCoordinator(filepath.Join(dir, "mute_state.json"), logger, mute.Options{InstanceID: "local"}),
		presenter: &recordingPresenter{},
		announcer: &recordingAnnouncer{},
	}
}

func (f *fixture) start(t *testing.T, opts scheduler.Options) *scheduler.Scheduler {
	t.Helper()
	opts.Presenter = f.presenter
	opts.Announcer = f.announcer
	s := scheduler.New(f.schedule, f.acks, f.mute, logging.NewNop(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("scheduler did not stop")
		}
	})
	require.Eventually(t, func() bool {
		_, ok := s.View()
		return ok
	}, 2*time.Second, 5*time.Millisecond, "first view never published")
	return s
}

func fixedNow(hour, minute int) func() time.Time {
	at := time.Date(2026, 3, 2, hour, minute, 0, 0, time.Local)
	return func() time.Time { return at }
}

var (
	fastQuiet    = scheduler.Cadence{AckPoll: 20 * time.Millisecond, Refresh: time.Hour}
	fastAlerting = scheduler.Cadence{AckPoll: 10 * time.Millisecond, Refresh: time.Hour}
)

func TestQuietBoardUsesQuietCadence(t *testing.T) {
	f := newFixture(t)
	_, err := f.schedule.Add("14:00", "UPS", "FedEx")
	require.NoError(t, err)

	s := f.start(t, scheduler.Options{Now: fixedNow(6, 0)})

	view, _ := s.View()
	assert.Equal(t, board.Quiet, view.Severity)
	assert.Len(t, view.Entries, 2)
	assert.Equal(t, scheduler.DefaultQuiet(), s.Cadence())
	assert.GreaterOrEqual(t, f.announcer.calls(), 1)
}

func TestAlertingBoardUsesAlertingCadence(t *testing.T) {
	f := newFixture(t)
	_, err := f.schedule.Add("11:50", "UPS")
	require.NoError(t, err)

	s := f.start(t, scheduler.Options{Now: fixedNow(12, 0)})

	view, _ := s.View()
	assert.Equal(t, board.Active, view.Severity)
	assert.Equal(t, scheduler.DefaultAlerting(), s.Cadence())
	require.Len(t, view.Alerts(), 1)
	assert.Equal(t, "UPS", view.Alerts()[0].Carrier)
}

func TestExternalAcknowledgmentSlowsCadence(t *testing.T) {
	f := newFixture(t)
	_, err := f.schedule.Add("11:50", "UPS")
	require.NoError(t, err)

	s := f.start(t, scheduler.Options{
		Now:      fixedNow(12, 0),
		Quiet:    fastQuiet,
		Alerting: fastAlerting,
		MutePoll: time.Hour,
	})
	require.Equal(t, fastAlerting, s.Cadence())

	// Another station writes through its own store on the same file.
	remote := ack.NewStore(f.acks.Path(), logging.NewNop(), ack.Options{InstanceID: "remote"})
	_, err = remote.Record(context.Background(), ack.Acknowledgment{
		Date:         "2026-03-02",
		ManifestTime: "11:50",
		Carrier:      "UPS",
		User:         "bob",
		Status:       status.Active,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		view, ok := f.presenter.last()
		return ok && view.Severity == board.Quiet
	}, 2*time.Second, 5*time.Millisecond, "external acknowledgment never observed")
	assert.Equal(t, fastQuiet, s.Cadence())

	view, _ := s.View()
	require.Len(t, view.Entries, 1)
	require.NotNil(t, view.Entries[0].Ack)
	assert.Equal(t, "bob", view.Entries[0].Ack.User)
}

func TestFirstPollIsNotAnExternalChange(t *testing.T) {
	f := newFixture(t)
	_, err := f.schedule.Add("14:00", "UPS")
	require.NoError(t, err)
	_, err = f.acks.Record(context.Background(), ack.Acknowledgment{
		Date: "2026-03-02", ManifestTime: "14:00", Carrier: "UPS", User: "amy", Status: status.Active,
	})
	require.NoError(t, err)

	f.start(t, scheduler.Options{Now: fixedNow(6, 0), Quiet: fastQuiet, Alerting: fastAlerting, MutePoll: time.Hour})
	time.Sleep(100 * time.Millisecond)

	// Initial refresh only; no ack poll should have triggered a rebuild.
	f.presenter.mu.Lock()
	defer f.presenter.mu.Unlock()
	assert.Len(t, f.presenter.views, 1)
}

func TestDoIsReadYourWrites(t *testing.T) {
	f := newFixture(t)
	_, err := f.schedule.Add("11:50", "UPS")
	require.NoError(t, err)

	s := f.start(t, scheduler.Options{
		Now:      fixedNow(12, 0),
		Quiet:    scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		Alerting: scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		MutePoll: time.Hour,
	})

	err = s.Do(context.Background(), func(ctx context.Context) error {
		_, err := f.mute.Set(ctx, true, "alice", 0)
		return err
	})
	require.NoError(t, err)

	view, _ := s.View()
	assert.True(t, view.Mute.IsMuted)
	assert.Equal(t, "alice", view.Mute.MutedBy)

	f.announcer.mu.Lock()
	lastMuted := f.announcer.muted[len(f.announcer.muted)-1]
	f.announcer.mu.Unlock()
	assert.True(t, lastMuted)
}

func TestDoReturnsActionError(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, scheduler.Options{Now: fixedNow(6, 0)})

	boom := errors.New("boom")
	err := s.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestDoAfterStopReturnsErrStopped(t *testing.T) {
	f := newFixture(t)
	s := scheduler.New(f.schedule, f.acks, f.mute, logging.NewNop(), scheduler.Options{Now: fixedNow(6, 0)})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	require.Eventually(t, func() bool {
		_, ok := s.View()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	err := s.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, scheduler.ErrStopped)
	assert.ErrorIs(t, s.Run(context.Background()), scheduler.ErrRunning)
}

func TestUnsnoozeTimerRefreshesPromptly(t *testing.T) {
	f := newFixture(t)
	_, err := f.mute.Set(context.Background(), true, "alice", 400*time.Millisecond)
	require.NoError(t, err)

	s := f.start(t, scheduler.Options{
		Quiet:    scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		Alerting: scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		MutePoll: time.Hour,
	})
	view, _ := s.View()
	require.True(t, view.Mute.IsMuted)

	require.Eventually(t, func() bool {
		view, _ := s.View()
		return !view.Mute.IsMuted
	}, 3*time.Second, 10*time.Millisecond, "timed mute never expired")
	assert.False(t, f.mute.Get(context.Background()).IsMuted)
}

// expiringMute reports a timed mute on the first read and unmuted after.
type expiringMute struct {
	path  string
	until time.Time

	mu    sync.Mutex
	reads int
}

func (m *expiringMute) Path() string           { return m.path }
func (m *expiringMute) Changed() (bool, error) { return false, nil }

func (m *expiringMute) Get(context.Context) mute.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.reads > 1 {
		return mute.State{}
	}
	return mute.State{IsMuted: true, MutedBy: "alice", UnmuteAt: shared.At(m.until)}
}

func TestUnsnoozeTimerFollowsInjectedClock(t *testing.T) {
	f := newFixture(t)
	// A clock a day ahead of the wall clock; the mute ends shortly after it.
	clockNow := time.Now().Add(24 * time.Hour)
	src := &expiringMute{path: filepath.Join(f.dir, "mute_state.json"), until: clockNow.Add(200 * time.Millisecond)}
	s := scheduler.New(f.schedule, f.acks, src, logging.NewNop(), scheduler.Options{
		Now:       func() time.Time { return clockNow },
		Quiet:     scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		Alerting:  scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		MutePoll:  time.Hour,
		Presenter: f.presenter,
		Announcer: f.announcer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-errCh)
	}()

	require.Eventually(t, func() bool {
		view, ok := s.View()
		return ok && !view.Mute.IsMuted
	}, 2*time.Second, 10*time.Millisecond, "unsnooze timer measured against the wall clock")

	f.presenter.mu.Lock()
	first := f.presenter.views[0]
	f.presenter.mu.Unlock()
	assert.True(t, first.Mute.IsMuted, "first view shows the timed mute")
}

func TestExternalMuteIsPolled(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, scheduler.Options{
		Now:      fixedNow(6, 0),
		Quiet:    scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		MutePoll: 10 * time.Millisecond,
	})

	remote := mute.NewCoordinator(f.mute.Path(), logging.NewNop(), mute.Options{InstanceID: "remote"})
	_, err := remote.Set(context.Background(), true, "bob", 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		view, _ := s.View()
		return view.Mute.IsMuted && view.Mute.MutedBy == "bob"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatchHintStopsCleanly(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, scheduler.Options{
		Now:      fixedNow(6, 0),
		Quiet:    scheduler.Cadence{AckPoll: time.Hour, Refresh: time.Hour},
		MutePoll: time.Hour,
		Watch:    true,
	})

	remote := mute.NewCoordinator(f.mute.Path(), logging.NewNop(), mute.Options{InstanceID: "remote"})
	_, err := remote.Set(context.Background(), true, "carol", 0)
	require.NoError(t, err)

	// With every timer parked, only the watch hint can surface the change.
	require.Eventually(t, func() bool {
		view, _ := s.View()
		return view.Mute.IsMuted
	}, 3*time.Second, 10*time.Millisecond)
}
