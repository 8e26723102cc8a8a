// Package pidfile manages the lock artifact that marks a running hddfand
// instance: a text file holding "<pid>\n", guarded by an exclusive flock held
// for the lifetime of the owning process.
package pidfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"hddfand/internal/faults"
)

// DefaultDir is where lock artifacts live when no path is configured.
const DefaultDir = "/run/lock"

// DefaultPath derives the artifact path from the daemon name.
func DefaultPath(name string) string {
	return filepath.Join(DefaultDir, name+".lock")
}

// Read returns the PID recorded at path. A missing file reports present=false
// with no error. Content that is not a positive integer reports present=true
// and pid 0 so callers treat it as stale.
func Read(path string) (pid int, present bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, faults.Wrap(faults.ErrLockArtifact, "pidfile", "read", path, err)
	}
	return parse(data), true, nil
}

func parse(data []byte) int {
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || value <= 0 {
		return 0
	}
	return value
}

// RemoveIf deletes path only when it still records pid. It reports whether the
// file was removed.
func RemoveIf(path string, pid int) (bool, error) {
	current, present, err := Read(path)
	if err != nil || !present {
		return false, err
	}
	if current != pid {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, faults.Wrap(faults.ErrLockArtifact, "pidfile", "remove", path, err)
	}
	return true, nil
}

// Handle is a held lock artifact.
type Handle struct {
	path string
	pid  int
	lock *flock.Flock
	once sync.Once
	err  error
}

// Acquire takes the exclusive lock on path and records pid in it. If another
// process holds the lock the error wraps faults.ErrAlreadyRunning.
func Acquire(path string, pid int) (*Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, faults.Wrap(faults.ErrLockArtifact, "pidfile", "acquire", "path is empty", nil)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, faults.Wrap(faults.ErrLockArtifact, "pidfile", "acquire", dir, err)
		}
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrLockArtifact, "pidfile", "lock", path, err)
	}
	if !ok {
		holder, _, _ := Read(path)
		return nil, faults.Wrap(faults.ErrAlreadyRunning, "pidfile", "lock",
			fmt.Sprintf("%s held by pid %d", path, holder), nil)
	}

	if err := write(path, pid); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Handle{path: path, pid: pid, lock: lock}, nil
}

func write(path string, pid int) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return faults.Wrap(faults.ErrLockArtifact, "pidfile", "write", path, err)
	}
	if _, err := file.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		_ = file.Close()
		return faults.Wrap(faults.ErrLockArtifact, "pidfile", "write", path, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return faults.Wrap(faults.ErrLockArtifact, "pidfile", "sync", path, err)
	}
	if err := file.Close(); err != nil {
		return faults.Wrap(faults.ErrLockArtifact, "pidfile", "close", path, err)
	}
	// flock creates the file 0600; status readers need to see it.
	_ = os.Chmod(path, 0o644)
	return nil
}

// Path returns the artifact location.
func (h *Handle) Path() string {
	return h.path
}

// PID returns the recorded process identifier.
func (h *Handle) PID() int {
	return h.pid
}

// Release removes the artifact if it still names this handle's PID and then
// drops the lock. Only the first call has an effect.
func (h *Handle) Release() error {
	h.once.Do(func() {
		_, removeErr := RemoveIf(h.path, h.pid)
		unlockErr := h.lock.Unlock()
		h.err = errors.Join(removeErr, unlockErr)
	})
	return h.err
}
