package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tebeka/atexit"
	"golang.org/x/sys/unix"

	"hddfand/internal/faults"
	"hddfand/internal/logging"
	"hddfand/internal/pidfile"
)

const (
	defaultStartTimeout = 10 * time.Second
	defaultStopTimeout  = 10 * time.Second
	defaultKillTimeout  = 5 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Body is the long-running work of an instance. It should return when ctx is
// cancelled.
type Body func(ctx context.Context) error

// Options configures a Manager.
type Options struct {
	// Name identifies the daemon; the default lock path derives from it.
	Name     string
	LockPath string
	Launcher Launcher
	Logger   *slog.Logger

	StartTimeout time.Duration
	StopTimeout  time.Duration
	KillTimeout  time.Duration
	PollInterval time.Duration
}

// RunOptions configures Run.
type RunOptions struct {
	// Detached applies the background process settings: umask 0, working
	// directory "/" and stdio on the null device.
	Detached bool
}

// StopResult captures the outcome of Stop.
type StopResult struct {
	WasRunning bool
	PID        int
	// Stale is set when the artifact named a process that was already gone.
	Stale  bool
	Forced bool
}

// Status describes the instance recorded in the lock artifact.
type Status struct {
	LockPath string
	Present  bool
	PID      int
	Alive    bool
	Process  ProcessInfo
}

// Manager implements start/stop/restart/run against one lock artifact.
type Manager struct {
	name         string
	lockPath     string
	launcher     Launcher
	logger       *slog.Logger
	startTimeout time.Duration
	stopTimeout  time.Duration
	killTimeout  time.Duration
	pollInterval time.Duration

	alive  func(pid int) bool
	signal func(pid int, sig unix.Signal) error
}

// New constructs a manager.
func New(opts Options) (*Manager, error) {
	name := strings.TrimSpace(opts.Name)
	lockPath := strings.TrimSpace(opts.LockPath)
	if lockPath == "" {
		if name == "" {
			return nil, errors.New("daemon: name or lock path is required")
		}
		lockPath = pidfile.DefaultPath(name)
	}
	m := &Manager{
		name:         name,
		lockPath:     lockPath,
		launcher:     opts.Launcher,
		logger:       logging.NewComponentLogger(opts.Logger, "daemon"),
		startTimeout: durationOr(opts.StartTimeout, defaultStartTimeout),
		stopTimeout:  durationOr(opts.StopTimeout, defaultStopTimeout),
		killTimeout:  durationOr(opts.KillTimeout, defaultKillTimeout),
		pollInterval: durationOr(opts.PollInterval, defaultPollInterval),
		alive:        processExists,
		signal:       signalProcess,
	}
	return m, nil
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}

// LockPath returns the lock artifact location.
func (m *Manager) LockPath() string {
	return m.lockPath
}

// ReadLock returns the PID recorded in the lock artifact. An absent artifact
// is not an error; unexpected I/O failures wrap faults.ErrLockArtifact.
func (m *Manager) ReadLock() (pid int, present bool, err error) {
	return pidfile.Read(m.lockPath)
}

// Status reports the recorded instance and whether it is alive.
func (m *Manager) Status() (Status, error) {
	pid, present, err := m.ReadLock()
	if err != nil {
		return Status{}, err
	}
	status := Status{LockPath: m.lockPath, Present: present, PID: pid}
	if present && pid > 0 && m.alive(pid) {
		status.Alive = true
		if info, err := inspectProcess(pid); err == nil {
			status.Process = info
		}
	}
	return status, nil
}

// Start launches a detached instance and waits until the lock artifact names
// a live process, returning its PID. A live recorded instance yields an
// *AlreadyRunningError without side effects; a stale artifact is removed.
func (m *Manager) Start(ctx context.Context) (int, error) {
	if m.launcher == nil {
		return 0, errors.New("daemon: no launcher configured")
	}
	if err := m.checkNotRunning(); err != nil {
		return 0, err
	}

	if err := m.launcher.Launch(ctx); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}

	pid, err := m.waitForInstance(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info("daemon started",
		logging.Int(logging.FieldPID, pid),
		logging.String(logging.FieldLockPath, m.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return pid, nil
}

// checkNotRunning fails for a live recorded instance and reclaims a stale
// artifact.
func (m *Manager) checkNotRunning() error {
	pid, present, err := m.ReadLock()
	if err != nil || !present {
		return err
	}
	if pid > 0 && m.alive(pid) {
		return &AlreadyRunningError{PID: pid, Path: m.lockPath}
	}
	return m.reclaimStale(pid)
}

func (m *Manager) reclaimStale(pid int) error {
	logging.WarnWithContext(m.logger, "removing stale lock artifact", "stale_lock_reclaimed",
		logging.Int(logging.FieldPID, pid),
		logging.String(logging.FieldLockPath, m.lockPath),
		logging.String(logging.FieldErrorHint, "the previous instance exited without cleaning up"),
		logging.String(logging.FieldImpact, "none; the artifact is replaced"),
	)
	if _, err := pidfile.RemoveIf(m.lockPath, pid); err != nil {
		return err
	}
	return nil
}

func (m *Manager) waitForInstance(ctx context.Context) (int, error) {
	deadline := time.Now().Add(m.startTimeout)
	for {
		pid, present, err := m.ReadLock()
		if err != nil {
			return 0, err
		}
		if present && pid > 0 && m.alive(pid) {
			return pid, nil
		}
		if !time.Now().Before(deadline) {
			return 0, fmt.Errorf("daemon did not record a live process in %s within %s; check the daemon log", m.lockPath, m.startTimeout)
		}
		if err := m.sleep(ctx); err != nil {
			return 0, err
		}
	}
}

// Stop terminates the recorded instance. SIGTERM is sent first; a process
// still alive after StopTimeout receives SIGKILL, and one still alive after
// KillTimeout yields faults.ErrStopTimeout. An absent artifact is success.
func (m *Manager) Stop(ctx context.Context) (StopResult, error) {
	pid, present, err := m.ReadLock()
	if err != nil {
		return StopResult{}, err
	}
	if !present {
		m.logger.Info("daemon not running",
			logging.String(logging.FieldLockPath, m.lockPath),
			logging.String(logging.FieldEventType, "daemon_not_running"),
		)
		return StopResult{}, nil
	}

	result := StopResult{WasRunning: true, PID: pid}
	if pid <= 0 || !m.alive(pid) {
		result.Stale = true
		return result, m.reclaimStale(pid)
	}
	if pid == os.Getpid() {
		return result, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}

	if err := m.signal(pid, unix.SIGTERM); err != nil {
		return result, fmt.Errorf("signal pid %d: %w", pid, err)
	}
	exited, err := m.waitForExit(ctx, pid, m.stopTimeout)
	if err != nil {
		return result, err
	}
	if !exited {
		logging.WarnWithContext(m.logger, "daemon ignored SIGTERM; sending SIGKILL", "daemon_force_kill",
			logging.Int(logging.FieldPID, pid),
			logging.Duration("stop_timeout", m.stopTimeout),
			logging.String(logging.FieldImpact, "fan left at its last drive level"),
		)
		result.Forced = true
		if err := m.signal(pid, unix.SIGKILL); err != nil {
			return result, fmt.Errorf("kill pid %d: %w", pid, err)
		}
		exited, err = m.waitForExit(ctx, pid, m.killTimeout)
		if err != nil {
			return result, err
		}
		if !exited {
			return result, faults.Wrap(faults.ErrStopTimeout, "daemon", "stop",
				fmt.Sprintf("pid %d still alive after SIGKILL", pid), nil)
		}
	}

	if _, err := pidfile.RemoveIf(m.lockPath, pid); err != nil {
		return result, err
	}
	m.logger.Info("daemon stopped",
		logging.Int(logging.FieldPID, pid),
		logging.Bool("forced", result.Forced),
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
	return result, nil
}

func (m *Manager) waitForExit(ctx context.Context, pid int, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if !m.alive(pid) {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := m.sleep(ctx); err != nil {
			return false, err
		}
	}
}

func (m *Manager) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Restart stops the recorded instance and starts a new one. A stop failure
// aborts the restart and is returned.
func (m *Manager) Restart(ctx context.Context) (StopResult, int, error) {
	stopped, err := m.Stop(ctx)
	if err != nil {
		return stopped, 0, fmt.Errorf("restart: %w", err)
	}
	pid, err := m.Start(ctx)
	if err != nil {
		return stopped, 0, fmt.Errorf("restart: %w", err)
	}
	return stopped, pid, nil
}

// Run hosts body in the current process as the daemon instance. It acquires
// the lock artifact with the current PID, installs a SIGTERM/SIGINT-cancelled
// context and releases the artifact on every return path, including
// atexit.Exit.
func (m *Manager) Run(ctx context.Context, body Body, opts RunOptions) error {
	if body == nil {
		return errors.New("daemon: body is required")
	}
	if opts.Detached {
		if err := prepareDetached(); err != nil {
			return err
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	self := os.Getpid()
	if pid, present, err := m.ReadLock(); err != nil {
		return err
	} else if present && pid > 0 && pid != self && m.alive(pid) {
		return &AlreadyRunningError{PID: pid, Path: m.lockPath}
	}

	handle, err := pidfile.Acquire(m.lockPath, self)
	if err != nil {
		if errors.Is(err, faults.ErrAlreadyRunning) {
			holder, _, _ := m.ReadLock()
			return &AlreadyRunningError{PID: holder, Path: m.lockPath}
		}
		return err
	}
	release := func() {
		if err := handle.Release(); err != nil {
			m.logger.Warn("failed to release lock artifact",
				logging.Error(err),
				logging.String(logging.FieldLockPath, m.lockPath),
				logging.String(logging.FieldEventType, "lock_release_failed"),
			)
		}
	}
	atexit.Register(release)
	defer release()

	if opts.Detached {
		if err := redirectStdio(); err != nil {
			return err
		}
	}

	m.logger.Info("daemon instance running",
		logging.Int(logging.FieldPID, self),
		logging.String(logging.FieldLockPath, m.lockPath),
		logging.Bool("detached", opts.Detached),
		logging.String(logging.FieldEventType, "daemon_running"),
	)

	err = body(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.ErrorWithContext(m.logger, "daemon instance failed", "daemon_failed",
			logging.Error(err),
			logging.Int(logging.FieldPID, self),
		)
		return err
	}
	m.logger.Info("daemon instance exiting",
		logging.Int(logging.FieldPID, self),
		logging.String(logging.FieldEventType, "daemon_exiting"),
	)
	return nil
}
