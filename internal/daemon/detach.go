package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Detachment stages passed to the re-executed binary.
const (
	// StageSession is the first child: new session, launches StageDetached.
	StageSession = "session"
	// StageDetached is the final daemon process.
	StageDetached = "detached"
)

// Launcher starts the detachment chain from the foreground process.
type Launcher interface {
	Launch(ctx context.Context) error
}

// ExecLauncher re-executes Executable with the arguments Args returns for a
// stage.
type ExecLauncher struct {
	Executable string
	Args       func(stage string) []string
}

// Launch starts the session stage in a new session. It does not wait for it.
func (l ExecLauncher) Launch(_ context.Context) error {
	return l.spawn(StageSession, true)
}

// Continue is called by the session stage. It starts the final stage without
// a new session; the caller then exits so the final stage is orphaned.
func (l ExecLauncher) Continue() error {
	return l.spawn(StageDetached, false)
}

func (l ExecLauncher) spawn(stage string, setsid bool) error {
	executable := strings.TrimSpace(l.Executable)
	if executable == "" {
		return fmt.Errorf("launch %s stage: executable path is empty", stage)
	}
	var args []string
	if l.Args != nil {
		args = l.Args(stage)
	}
	return spawnDetached(executable, args, setsid)
}

// spawnDetached starts executable rooted at "/" with stdio on the null device
// and releases it.
func spawnDetached(executable string, args []string, setsid bool) error {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(executable, args...)
	cmd.Dir = "/"
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: setsid}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start detached process: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("release detached process: %w", err)
	}
	return nil
}

// prepareDetached applies the process-wide settings of a detached instance.
func prepareDetached() error {
	unix.Umask(0)
	if err := os.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}
	return nil
}

var stdioNull *os.File

// redirectStdio flushes and points stdin, stdout and stderr at the null
// device.
func redirectStdio() error {
	_ = os.Stdout.Sync()
	_ = os.Stderr.Sync()

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	fd := int(devNull.Fd())
	if fd > 2 {
		defer devNull.Close()
	} else {
		// The null device landed on a standard descriptor; keep it open.
		stdioNull = devNull
	}

	for _, target := range []int{int(os.Stdin.Fd()), int(os.Stdout.Fd()), int(os.Stderr.Fd())} {
		if fd == target {
			continue
		}
		if err := unix.Dup3(fd, target, 0); err != nil {
			return fmt.Errorf("redirect fd %d: %w", target, err)
		}
	}
	return nil
}
