package testsupport

import (
	"os/exec"
	"testing"
	"time"
)

// Sleeper is a live child process used as a stand-in daemon instance.
type Sleeper struct {
	PID  int
	done chan struct{}
}

// StartSleeper starts a long sleep child. The child is reaped as soon as it
// exits so liveness checks do not see a zombie, and killed at cleanup.
func StartSleeper(t testing.TB) *Sleeper {
	t.Helper()
	cmd := exec.Command("sleep", "60")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start sleep: %v", err)
	}
	s := &Sleeper{PID: cmd.Process.Pid, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(s.done)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-s.done
	})
	return s
}

// Exited reports whether the sleeper has exited within timeout.
func (s *Sleeper) Exited(timeout time.Duration) bool {
	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// DeadPID returns the PID of a child that has already exited and been reaped.
func DeadPID(t testing.TB) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	return cmd.Process.Pid
}
