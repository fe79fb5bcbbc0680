package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pacwrap/pacwrap/pkg/perror"
)

// Scope identifies which resource a lock protects, used to pick the
// correct typed error kind when acquisition fails.
type Scope int

const (
	ScopeDatabase Scope = iota
	ScopeCache
)

// Handle is a held advisory lock over a container's database or the
// shared cache directory. Release must be called exactly once.
type Handle struct {
	path string
	file *os.File
}

// Acquire takes an exclusive advisory lock on <dir>/.lock, waiting up to
// timeout for a competing holder to release it. If the wait expires, the
// returned error is a typed perror.Error so the front-end CLI can report
// which container or the shared cache is contended.
func Acquire(dir string, scope Scope, timeout time.Duration) (*Handle, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create lock directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, ".lock")

	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
		if err == nil {
			return &Handle{path: path, file: f}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			return nil, lockHeldError(scope, path)
		}
		if waitForRemoval(path, deadline) {
			continue
		}
		return nil, lockHeldError(scope, path)
	}
}

// waitForRemoval blocks on an fsnotify watch of path's parent directory
// until the lock file is removed or the deadline passes, reporting true
// if it is worth retrying the acquire loop.
func waitForRemoval(path string, deadline time.Time) bool {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		time.Sleep(100 * time.Millisecond)
		return time.Now().Before(deadline)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		time.Sleep(100 * time.Millisecond)
		return time.Now().Before(deadline)
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if ev.Name == path && (ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0) {
				return true
			}
		case <-watcher.Errors:
			return time.Now().Before(deadline)
		case <-timer.C:
			return false
		}
	}
}

func lockHeldError(scope Scope, path string) error {
	if scope == ScopeCache {
		return perror.New(perror.KindCacheLockHeld, "cache is locked by another pacwrap process", path)
	}
	return perror.New(perror.KindDatabaseLockHeld, "container database is locked by another pacwrap process", path)
}

// Release removes the lock file, freeing it for the next acquirer.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	if err := h.file.Close(); err != nil {
		return err
	}
	return os.Remove(h.path)
}
