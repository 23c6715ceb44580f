package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/dmg-installer/internal/logger"
)

const (
	// LockFilename marks that an installer run is in progress to avoid parallel execution.
	LockFilename = "dmg-installer.lock"

	// takeoverSuffix names the guard file held while a stale lock is replaced.
	takeoverSuffix = ".takeover"

	// lockLifetime is the age after which a lock is ignored even if its PID is alive,
	// since the PID may have been reused by an unrelated process.
	lockLifetime = 2 * time.Hour

	// takeoverLifetime is the age after which an abandoned takeover guard is removed.
	takeoverLifetime = time.Minute

	// lockFileMode is the permission of the lock file.
	lockFileMode os.FileMode = 0o644
)

// lockState is the outcome of inspecting an existing lock file.
type lockState int

const (
	lockMissing lockState = iota
	lockHeld
	lockStale
)

// ErrAlreadyRunning is returned when another run holds the lock.
var ErrAlreadyRunning = errors.New("another installer run is in progress")

// runLock is an exclusive marker file holding the owner's PID.
type runLock struct {
	path string
}

// acquireLock creates the marker in dir. A marker left by a process that is
// no longer running, or older than lockLifetime, is taken over once.
func acquireLock(ctx context.Context, dir string) (*runLock, error) {
	path := filepath.Join(filepath.Clean(dir), LockFilename)

	for attempt := 0; attempt < 2; attempt++ {
		created, err := createExclusive(path, strconv.Itoa(os.Getpid()))
		if err != nil {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		if created {
			return &runLock{path: path}, nil
		}

		switch inspectLock(ctx, path) {
		case lockHeld:
			return nil, ErrAlreadyRunning
		case lockMissing:
			continue
		case lockStale:
			if err = takeOver(ctx, path); err != nil {
				return nil, err
			}
		}
	}

	return nil, ErrAlreadyRunning
}

// createExclusive creates path with contents unless it already exists.
func createExclusive(path, contents string) (bool, error) {
	//nolint:gosec // The lock path is built from trusted configuration.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	_, writeErr := file.WriteString(contents)
	closeErr := file.Close()

	if err = errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(path)

		return false, err
	}

	return true, nil
}

// takeOver removes a stale lock while holding the takeover guard. The lock is
// inspected again under the guard, so a lock created by a competing run after
// the first inspection is never removed.
func takeOver(ctx context.Context, path string) error {
	guardPath := path + takeoverSuffix

	acquired, err := createExclusive(guardPath, strconv.Itoa(os.Getpid()))
	if err != nil {
		return fmt.Errorf("create lock guard: %w", err)
	}

	if !acquired {
		if info, statErr := os.Stat(guardPath); statErr == nil && time.Since(info.ModTime()) > takeoverLifetime {
			logger.WarnKV(ctx, "Removing abandoned lock guard", "path", guardPath)

			_ = os.Remove(guardPath)
		}

		return ErrAlreadyRunning
	}

	defer func() {
		_ = os.Remove(guardPath)
	}()

	switch inspectLock(ctx, path) {
	case lockMissing:
		return nil
	case lockHeld:
		return ErrAlreadyRunning
	case lockStale:
	}

	logger.WarnKV(ctx, "Removing stale run lock", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale lock: %w", err)
	}

	return nil
}

// release removes the marker.
func (l *runLock) release(ctx context.Context) {
	if l == nil {
		return
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove run lock", "path", l.path, "error", err)
	}
}

// inspectLock reports whether the lock at path can be taken over.
func inspectLock(ctx context.Context, path string) lockState {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return lockMissing
	}

	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect run lock", "path", path, "error", err)

		return lockHeld
	}

	if time.Since(info.ModTime()) > lockLifetime {
		return lockStale
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return lockMissing
	}

	if err != nil {
		return lockHeld
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		// Possibly still being written by its owner.
		return lockHeld
	}

	owner, err := ps.FindProcess(pid)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect lock owner", "pid", pid, "error", err)

		return lockHeld
	}

	if owner == nil {
		return lockStale
	}

	logger.InfoKV(ctx, "Run lock is held", "pid", pid, "executable", owner.Executable())

	return lockHeld
}
