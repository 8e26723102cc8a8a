// Package daemonrun assembles the hddfand daemon body from configuration:
// sensor, fan actuator, control loop, journal and hotplug watcher.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"hddfand/internal/config"
	"hddfand/internal/daemon"
	"hddfand/internal/fancontrol"
	"hddfand/internal/hddtemp"
	"hddfand/internal/hotplug"
	"hddfand/internal/journal"
	"hddfand/internal/logging"
	"hddfand/internal/pwm"
)

// journalRetention bounds how long actuation history is kept.
const journalRetention = 30 * 24 * time.Hour

// Options configures daemon process runtime behavior.
type Options struct {
	// Detached applies the background process settings before the body runs.
	Detached bool
	// RunID tags every record of the instance; generated when empty.
	RunID string
	// Logger defaults to one built from the configuration.
	Logger *slog.Logger
}

// NewRunID returns a fresh identifier for one daemon instance.
func NewRunID() string {
	return uuid.NewString()
}

// NewLogger builds the instance logger from cfg. When the syslog sink cannot
// be reached the logger is rebuilt without it and the failure is logged.
func NewLogger(cfg *config.Config, runID string) (*slog.Logger, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger, err := logging.NewFromConfig(cfg, runID)
	if err == nil || !cfg.Logging.Syslog {
		return logger, err
	}
	fallback := *cfg
	fallback.Logging.Syslog = false
	logger, fallbackErr := logging.NewFromConfig(&fallback, runID)
	if fallbackErr != nil {
		return nil, fallbackErr
	}
	logging.WarnWithContext(logger, "syslog unavailable; logging without it", "syslog_unavailable",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that a syslog daemon is listening on /dev/log"),
		logging.String(logging.FieldImpact, "records only reach the console and log file"),
	)
	return logger, nil
}

// Instance is a daemon body whose pre-detachment checks have passed.
type Instance struct {
	cfg        *config.Config
	base       *slog.Logger
	logger     *slog.Logger
	runID      string
	sensor     *hddtemp.Reader
	fan        *pwm.Writer
	thresholds fancontrol.Thresholds
}

// Prepare validates everything that must fail before detachment: the
// thresholds, the sensor binary and the fan control file.
func Prepare(cfg *config.Config, logger *slog.Logger, runID string) (*Instance, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	thresholds := Thresholds(cfg)
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	sensor, err := hddtemp.New(cfg.Sensor.Binary, cfg.Sensor.Timeout, hddtemp.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	fan := pwm.NewWriter(cfg.Fan.Address)
	if err := fan.Check(); err != nil {
		return nil, err
	}
	return &Instance{
		cfg:        cfg,
		base:       logger,
		logger:     logging.NewComponentLogger(logger, "daemonrun"),
		runID:      strings.TrimSpace(runID),
		sensor:     sensor,
		fan:        fan,
		thresholds: thresholds,
	}, nil
}

// Thresholds maps the control section of cfg onto policy thresholds.
func Thresholds(cfg *config.Config) fancontrol.Thresholds {
	return fancontrol.Thresholds{
		Low:      cfg.Control.MinTemp,
		High:     cfg.Control.MaxTemp,
		MinLevel: cfg.Fan.MinStop,
		MaxLevel: cfg.Fan.MaxPWM,
		Policy:   fancontrol.Policy(cfg.Control.Policy),
	}
}

// Run is the daemon body: it runs the control loop until ctx is cancelled or
// a sensor or actuator failure ends the instance.
func (i *Instance) Run(ctx context.Context) error {
	logger := i.logger
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("hddtemp_binary", i.sensor.Binary()),
		logging.String("fan_control", i.fan.Path()),
		logging.Any("drives", i.cfg.Sensor.Disks),
		logging.String("journal", i.cfg.Daemon.Journal),
	)

	controllerOpts := []fancontrol.ControllerOption{fancontrol.WithControllerLogger(i.base)}
	if store := i.openJournal(ctx); store != nil {
		defer store.Close()
		controllerOpts = append(controllerOpts, fancontrol.WithRecorder(journalRecorder{
			store: store,
			runID: i.runID,
			pid:   os.Getpid(),
		}))
	}

	controller, err := fancontrol.NewController(i.thresholds, i.fan, controllerOpts...)
	if err != nil {
		return err
	}
	loop, err := fancontrol.NewLoop(fancontrol.LoopConfig{
		Sampler:    i.sensor,
		Controller: controller,
		Drives:     i.cfg.Sensor.Disks,
		Interval:   i.cfg.Control.Interval,
		FailSafe:   i.cfg.Control.FailSafe,
		Logger:     i.base,
	})
	if err != nil {
		return err
	}

	if i.cfg.Daemon.WatchDevices {
		watcher := hotplug.New(i.cfg.Sensor.Disks, i.base)
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start hotplug watcher: %w", err)
		}
		defer watcher.Stop()
	}

	return loop.Run(ctx)
}

// openJournal opens the actuation journal and prunes old entries. Failures
// are logged; the daemon runs without a journal.
func (i *Instance) openJournal(ctx context.Context) *journal.Store {
	path := strings.TrimSpace(i.cfg.Daemon.Journal)
	if path == "" {
		return nil
	}
	store, err := journal.Open(ctx, path)
	if err != nil {
		logging.WarnWithContext(i.logger, "actuation journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String("journal", path),
			logging.String(logging.FieldErrorHint, "check permissions on the journal directory"),
			logging.String(logging.FieldImpact, "drive level changes are not recorded"),
		)
		return nil
	}
	removed, err := store.Prune(ctx, time.Now().Add(-journalRetention))
	if err != nil {
		logging.WarnWithContext(i.logger, "failed to prune actuation journal", "journal_prune_failed",
			logging.Error(err),
			logging.String("journal", path),
		)
	} else if removed > 0 {
		i.logger.Debug("pruned actuation journal",
			logging.Int64("removed", removed),
			logging.String(logging.FieldEventType, "journal_pruned"),
		)
	}
	return store
}

type journalRecorder struct {
	store *journal.Store
	runID string
	pid   int
}

func (r journalRecorder) Record(ctx context.Context, a fancontrol.Actuation) error {
	return r.store.Record(ctx, journal.Entry{
		Time:     a.Time,
		RunID:    r.runID,
		PID:      r.pid,
		Level:    a.Level,
		Decision: a.Decision.String(),
	})
}

// Run prepares an instance from cfg and hosts it under mgr. Preparation
// failures are returned before the lock artifact is touched.
func Run(ctx context.Context, cfg *config.Config, mgr *daemon.Manager, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if mgr == nil {
		return errors.New("daemon manager is required")
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = NewRunID()
	}
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg, runID); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	instance, err := Prepare(cfg, logger, runID)
	if err != nil {
		return err
	}
	return mgr.Run(ctx, instance.Run, daemon.RunOptions{Detached: opts.Detached})
}
