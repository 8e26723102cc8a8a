package daemon

import (
	"errors"
	"time"

	"github.com/shirou/gopsutil/process"
	"golang.org/x/sys/unix"
)

// ProcessInfo describes the process recorded in the lock artifact.
type ProcessInfo struct {
	Name    string
	Cmdline string
	Started time.Time
}

// processExists reports whether pid names a live process. Permission errors
// mean the process exists but belongs to someone else.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	if err == nil {
		return exists
	}
	err = unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// signalProcess delivers sig to pid. A process that is already gone is not an
// error.
func signalProcess(pid int, sig unix.Signal) error {
	err := unix.Kill(pid, sig)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func inspectProcess(pid int) (ProcessInfo, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return ProcessInfo{}, err
	}
	var info ProcessInfo
	if name, err := proc.Name(); err == nil {
		info.Name = name
	}
	if cmdline, err := proc.Cmdline(); err == nil {
		info.Cmdline = cmdline
	}
	if created, err := proc.CreateTime(); err == nil && created > 0 {
		info.Started = time.UnixMilli(created)
	}
	return info, nil
}
