// Package daemonctl builds the lifecycle manager used by the CLI and collects
// status snapshots of a running instance.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"hddfand/internal/config"
	"hddfand/internal/daemon"
	"hddfand/internal/journal"
	"hddfand/internal/preflight"
)

// DaemonName identifies the instance and derives the default lock path.
const DaemonName = "hddfand"

// LaunchOptions controls how the detached chain re-executes the binary.
type LaunchOptions struct {
	Executable string
	ConfigPath string
}

// StageArgs returns the command line for a detachment stage.
func StageArgs(configPath string) func(stage string) []string {
	configPath = strings.TrimSpace(configPath)
	return func(stage string) []string {
		args := []string{"daemon", "--stage", stage}
		if configPath != "" {
			args = append(args, "--config", configPath)
		}
		return args
	}
}

// Launcher returns the exec-based launcher for opts.
func Launcher(opts LaunchOptions) daemon.ExecLauncher {
	return daemon.ExecLauncher{
		Executable: strings.TrimSpace(opts.Executable),
		Args:       StageArgs(opts.ConfigPath),
	}
}

// NewManager constructs the lifecycle manager for cfg.
func NewManager(cfg *config.Config, opts LaunchOptions, logger *slog.Logger) (*daemon.Manager, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	if strings.TrimSpace(opts.Executable) == "" {
		executable, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		opts.Executable = executable
	}
	return daemon.New(daemon.Options{
		Name:        DaemonName,
		LockPath:    cfg.Daemon.PIDFile,
		Launcher:    Launcher(opts),
		Logger:      logger,
		StopTimeout: cfg.Daemon.StopTimeout,
	})
}

// Snapshot is the data rendered by "hddfand status".
type Snapshot struct {
	Instance daemon.Status
	Checks   []preflight.Result
	// Recent holds the newest journal entries; JournalDetail explains why it
	// is empty when the journal is disabled or unreadable.
	Recent        []journal.Entry
	JournalDetail string
}

// BuildStatusSnapshot collects instance state, preflight checks and the most
// recent journal entries. Only the lock artifact read is fatal.
func BuildStatusSnapshot(ctx context.Context, mgr *daemon.Manager, cfg *config.Config, recentLimit int) (*Snapshot, error) {
	if mgr == nil || cfg == nil {
		return nil, errors.New("configuration not available")
	}
	status, err := mgr.Status()
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{
		Instance: status,
		Checks:   preflight.RunAll(cfg),
	}
	snapshot.Recent, snapshot.JournalDetail = recentEntries(ctx, cfg.Daemon.Journal, recentLimit)
	return snapshot, nil
}

func recentEntries(ctx context.Context, path string, limit int) ([]journal.Entry, string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "Disabled"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "No entries yet"
		}
		return nil, fmt.Sprintf("unreadable: %v", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	store, err := journal.Open(queryCtx, path)
	if err != nil {
		return nil, fmt.Sprintf("unreadable: %v", err)
	}
	defer store.Close()

	entries, err := store.Recent(queryCtx, limit)
	if err != nil {
		return nil, fmt.Sprintf("unreadable: %v", err)
	}
	if len(entries) == 0 {
		return nil, "No entries yet"
	}
	return entries, ""
}
