package schedule_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manifestboard/internal/logging"
	"manifestboard/internal/schedule"
	"manifestboard/internal/shared"
)

func newStore(t *testing.T) (*schedule.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest_config.json")
	return schedule.NewStore(path, logging.NewNop()), path
}

func TestLoadCreatesDefault(t *testing.T) {
	store, path := newStore(t)
	doc, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Manifests)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"manifests": []}`, string(data))
}

func TestLoadCorruptBacksUp(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"manifests": [`), 0o644))

	doc, err := store.Load()
	require.ErrorIs(t, err, shared.ErrCorrupt)
	assert.Empty(t, doc.Manifests)
	backup, readErr := os.ReadFile(path + ".bak")
	require.NoError(t, readErr)
	assert.Equal(t, `{"manifests": [`, string(backup))

	manifests, err := store.Manifests(time.Now())
	assert.True(t, errors.Is(err, shared.ErrCorrupt))
	assert.Empty(t, manifests)
}

func TestNormalizedMergesAndDedupes(t *testing.T) {
	doc := schedule.Document{Manifests: []schedule.Manifest{
		{Time: "14:00", Carriers: []string{"FedEx"}},
		{Time: "9:30", Carriers: []string{" UPS ", "", "UPS", "DHL"}},
		{Time: "09:30", Carriers: []string{"USPS", "DHL"}},
		{Time: "soon", Carriers: []string{"Local"}},
	}}
	want := schedule.Document{Manifests: []schedule.Manifest{
		{Time: "09:30", Carriers: []string{"UPS", "DHL", "USPS"}},
		{Time: "14:00", Carriers: []string{"FedEx"}},
		{Time: "soon", Carriers: []string{"Local"}},
	}}
	if diff := cmp.Diff(want, doc.Normalized()); diff != "" {
		t.Fatalf("Normalized mismatch (-want +got):\n%s", diff)
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Add("12:10", "CarrierX", "CarrierY")
	require.NoError(t, err)
	_, err = store.Add("08:00", "CarrierZ")
	require.NoError(t, err)
	_, err = store.Add("12:10", "CarrierX")
	require.NoError(t, err)

	doc, err := store.Load()
	require.NoError(t, err)
	want := schedule.Document{Manifests: []schedule.Manifest{
		{Time: "08:00", Carriers: []string{"CarrierZ"}},
		{Time: "12:10", Carriers: []string{"CarrierX", "CarrierY"}},
	}}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("after add (-want +got):\n%s", diff)
	}

	_, err = store.Remove("12:10", "CarrierY")
	require.NoError(t, err)
	_, err = store.Remove("08:00", "")
	require.NoError(t, err)
	_, err = store.Remove("08:00", "")
	require.ErrorIs(t, err, schedule.ErrNotFound)
	_, err = store.Remove("12:10", "Nobody")
	require.ErrorIs(t, err, schedule.ErrNotFound)

	manifests, err := store.Manifests(time.Now())
	require.NoError(t, err)
	assert.Equal(t, []schedule.Manifest{{Time: "12:10", Carriers: []string{"CarrierX"}}}, manifests)
}

func TestAddRejectsBadInput(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Add("25:00", "X")
	assert.Error(t, err)
	_, err = store.Add("10:00")
	assert.Error(t, err)
}

func TestManifestsPicksUpExternalEdit(t *testing.T) {
	store, path := newStore(t)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.Local)

	first, err := store.Manifests(now)
	require.NoError(t, err)
	assert.Empty(t, first)

	require.NoError(t, os.WriteFile(path, []byte(`{"manifests":[{"time":"11:00","carriers":["A"]}]}`), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := store.Manifests(now)
	require.NoError(t, err)
	assert.Equal(t, []schedule.Manifest{{Time: "11:00", Carriers: []string{"A"}}}, second)
}
