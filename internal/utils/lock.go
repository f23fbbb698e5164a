package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName = ".matchfeed.lock"
)

// ErrLocked means another process already holds the data directory.
var ErrLocked = errors.New("data directory is locked by another matchfeed process")

// DirLock keeps a second long-running process from writing into the same
// data directory.
type DirLock struct {
	lock *flock.Flock
	path string
}

// NewDirLock creates a lock for the given data directory.
func NewDirLock(dataDir string) (*DirLock, error) {
	absPath, err := GetAbsDataDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute data dir: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data dir: %w", err)
	}
	lockPath := filepath.Join(absPath, lockFileName)
	return &DirLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// TryLock acquires the lock or fails with ErrLocked. It never waits: two
// servers sharing a directory is a configuration mistake.
func (l *DirLock) TryLock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("%w (%s)", ErrLocked, l.path)
	}
	return nil
}

// Unlock releases the lock.
func (l *DirLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDataDir resolves the data directory, defaulting to
// ~/.local/share/matchfeed.
func GetAbsDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "matchfeed"), nil
	}
	return filepath.Abs(dataDir)
}
