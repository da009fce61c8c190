package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manifestboard/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifestboard-20260302.log")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, result.Lines)
	assert.EqualValues(t, 6, result.Offset)
}

func TestTailFewerLinesThanLimit(t *testing.T) {
	path := writeLog(t, "only\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, result.Lines)
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, result.Lines)
	assert.Zero(t, result.Offset)
}

func TestTailResumesFromOffsetAndHoldsPartialLine(t *testing.T) {
	path := writeLog(t, "first\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 1})
	require.NoError(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("second\nthi")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	next, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: result.Offset})
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, next.Lines)
	assert.EqualValues(t, len("first\nsecond\n"), next.Offset)
}

func TestTailTruncatedFileRestarts(t *testing.T) {
	path := writeLog(t, "x\n")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 500})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, result.Lines)
}

func TestTailFollowWaits(t *testing.T) {
	path := writeLog(t, "start\n")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	result, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: 1})
	require.NoError(t, err)

	type outcome struct {
		res logs.TailResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 5 * time.Second})
		done <- outcome{res, err}
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("later\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, []string{"later"}, got.res.Lines)
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestTailFollowCancelled(t *testing.T) {
	path := writeLog(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := logs.Tail(ctx, path, logs.TailOptions{Offset: 0, Follow: true, Wait: time.Minute})
	assert.ErrorIs(t, err, context.Canceled)
}
