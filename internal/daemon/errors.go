package daemon

import (
	"fmt"

	"hddfand/internal/faults"
)

// AlreadyRunningError reports a live instance recorded in the lock artifact.
type AlreadyRunningError struct {
	PID  int
	Path string
}

func (e *AlreadyRunningError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("daemon already running (pid %d, lock %s)", e.PID, e.Path)
	}
	return fmt.Sprintf("daemon already running (lock %s)", e.Path)
}

// Unwrap lets errors.Is match faults.ErrAlreadyRunning.
func (e *AlreadyRunningError) Unwrap() error {
	return faults.ErrAlreadyRunning
}
