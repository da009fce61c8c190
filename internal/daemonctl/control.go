package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"manifestboard/internal/config"
)

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// ReadPID returns the pid recorded by a running daemon, or 0 when none is
// recorded.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// ProcessInfo reports whether a daemon holds the station lock and its pid
// when recorded.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	if cfg == nil {
		return false, 0, errors.New("configuration not available")
	}
	running, err := lockHeld(cfg.LockPath())
	if err != nil {
		return false, 0, err
	}
	if !running {
		return false, 0, nil
	}
	pid, err := ReadPID(cfg.PIDPath())
	return true, pid, err
}

// lockHeld probes the station lock without keeping it.
func lockHeld(lockPath string) (bool, error) {
	if _, err := os.Stat(lockPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}

// WaitForShutdown waits for the station lock to be released.
func WaitForShutdown(cfg *config.Config, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		running, _, err := ProcessInfo(cfg)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("daemon did not stop before timeout")
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// ForceKillProcess sends SIGKILL to the daemon and removes its pid file.
func ForceKillProcess(pidPath string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	return nil
}

// StopAndTerminate sends SIGTERM to the daemon and force-kills it if it still
// holds the station lock after gracePeriod.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid <= 0 {
		return StopResult{}, fmt.Errorf("daemon holds %s but no pid is recorded in %s", cfg.LockPath(), cfg.PIDPath())
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	if err := WaitForShutdown(cfg, gracePeriod); err == nil {
		return result, nil
	}
	if err := ForceKillProcess(cfg.PIDPath(), pid); err != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", err)
	}
	result.ForcedKill = true
	return result, nil
}
