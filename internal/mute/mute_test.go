package mute_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manifestboard/internal/logging"
	"manifestboard/internal/mute"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newCoordinator(t *testing.T) (*mute.Coordinator, *fakeClock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mute_state.json")
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return mute.NewCoordinator(path, logging.NewNop(), mute.Options{Now: clock.Now}), clock, path
}

func readDisk(t *testing.T, path string) mute.State {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var state mute.State
	require.NoError(t, json.Unmarshal(data, &state))
	return state
}

func TestMissingDocumentIsUnmutedAndCreated(t *testing.T) {
	c, _, path := newCoordinator(t)
	state := c.Get(context.Background())
	assert.False(t, state.IsMuted)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestTimedMuteExpiresLazily(t *testing.T) {
	ctx := context.Background()
	c, clock, path := newCoordinator(t)

	state, err := c.Set(ctx, true, "alice", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, state.IsMuted)
	assert.True(t, state.UnmuteAt.Equal(clock.Now().Add(5*time.Minute)))

	clock.Advance(4 * time.Minute)
	remaining, ok := c.TimeRemaining(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, mute.RemainingMinutes(remaining))

	clock.Advance(2 * time.Minute)
	state = c.Get(ctx)
	assert.False(t, state.IsMuted)
	assert.False(t, readDisk(t, path).IsMuted, "expiry must be persisted")
}

func TestIndefiniteMute(t *testing.T) {
	ctx := context.Background()
	c, clock, path := newCoordinator(t)

	_, err := c.Set(ctx, true, "bob", 0)
	require.NoError(t, err)
	clock.Advance(48 * time.Hour)
	assert.True(t, c.Get(ctx).IsMuted)
	_, ok := c.TimeRemaining(ctx)
	assert.False(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"unmute_at": null`)
}

func TestToggleMessages(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCoordinator(t)

	state, msg, err := c.Toggle(ctx, "alice", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, state.IsMuted)
	assert.Equal(t, "Alerts muted by alice for 5 minutes", msg)

	state, msg, err = c.Toggle(ctx, "bob", 0)
	require.NoError(t, err)
	assert.False(t, state.IsMuted)
	assert.Equal(t, "Alerts unmuted by bob", msg)

	_, msg, err = c.Toggle(ctx, "carol", 0)
	require.NoError(t, err)
	assert.Equal(t, "Alerts muted by carol until unmuted", msg)

	assert.Equal(t, "Alerts muted by dan for 1 minute", mute.Message(mute.State{IsMuted: true}, "dan", 30*time.Second))
}

func TestUnreadableStateDefaultsToUnmuted(t *testing.T) {
	ctx := context.Background()
	c, _, path := newCoordinator(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"is_muted": tru`), 0o644))

	assert.False(t, c.Get(ctx).IsMuted)
	_, err := os.Stat(path + ".bak")
	assert.NoError(t, err, "corrupt mute file must be backed up")

	state, err := c.Set(ctx, true, "alice", time.Minute)
	require.NoError(t, err)
	assert.True(t, state.IsMuted)
	assert.True(t, c.Get(ctx).IsMuted)
}

func TestCorruptStateWarnsOncePerRevision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mute_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"is_muted": tru`), 0o644))
	var logs bytes.Buffer
	c := mute.NewCoordinator(path, slog.New(slog.NewJSONHandler(&logs, nil)), mute.Options{})

	for i := 0; i < 3; i++ {
		assert.False(t, c.Get(ctx).IsMuted)
	}
	assert.Equal(t, 1, strings.Count(logs.String(), "mute_read_failed"))
	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, `{"is_muted": tru`, string(backup))
}

func TestNegativeDurationRejected(t *testing.T) {
	c, _, _ := newCoordinator(t)
	_, err := c.Set(context.Background(), true, "alice", -time.Minute)
	assert.Error(t, err)
}

func TestRemainingMinutesRoundsUp(t *testing.T) {
	cases := map[time.Duration]int{
		0:                            0,
		-time.Second:                 0,
		time.Second:                  1,
		time.Minute:                  1,
		time.Minute + time.Second:    2,
		14*time.Minute + time.Second: 15,
	}
	for in, want := range cases {
		assert.Equal(t, want, mute.RemainingMinutes(in), "RemainingMinutes(%s)", in)
	}
}

func TestChangedSeesOtherInstance(t *testing.T) {
	ctx := context.Background()
	a, clock, path := newCoordinator(t)
	b := mute.NewCoordinator(path, logging.NewNop(), mute.Options{Now: clock.Now})

	_, err := a.Changed()
	require.NoError(t, err)
	_, err = a.Set(ctx, false, "alice", 0)
	require.NoError(t, err)
	changed, err := a.Changed()
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = b.Set(ctx, true, "bob", 10*time.Minute)
	require.NoError(t, err)
	changed, err = a.Changed()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, a.Get(ctx).IsMuted)
}
