package fancontrol

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hddfand/internal/logging"
)

// Sampler returns the hottest temperature across drives.
type Sampler interface {
	Sample(ctx context.Context, drives []string) (int, error)
}

// LoopConfig wires the control loop.
type LoopConfig struct {
	Sampler    Sampler
	Controller *Controller
	Drives     []string
	Interval   time.Duration
	// FailSafe engages the fan before a sensor failure is returned.
	FailSafe bool
	Logger   *slog.Logger
}

// Loop is the sequential sample, decide, actuate, sleep cycle.
type Loop struct {
	sampler    Sampler
	controller *Controller
	drives     []string
	interval   time.Duration
	failSafe   bool
	logger     *slog.Logger
	after      func(time.Duration) <-chan time.Time
}

// NewLoop validates cfg and constructs a loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	switch {
	case cfg.Sampler == nil:
		return nil, errors.New("fancontrol: sampler is required")
	case cfg.Controller == nil:
		return nil, errors.New("fancontrol: controller is required")
	case cfg.Interval <= 0:
		return nil, errors.New("fancontrol: interval must be positive")
	}
	drives := make([]string, len(cfg.Drives))
	copy(drives, cfg.Drives)
	return &Loop{
		sampler:    cfg.Sampler,
		controller: cfg.Controller,
		drives:     drives,
		interval:   cfg.Interval,
		failSafe:   cfg.FailSafe,
		logger:     logging.NewComponentLogger(cfg.Logger, "fancontrol"),
		after:      time.After,
	}, nil
}

// Run executes iterations until ctx is cancelled (returns nil) or a sensor or
// actuator failure occurs (returns the error). The first iteration runs
// immediately.
func (l *Loop) Run(ctx context.Context) error {
	t := l.controller.Thresholds()
	l.logger.Info("control loop started",
		logging.Any("drives", l.drives),
		logging.Duration("interval", l.interval),
		logging.Int("low", t.Low),
		logging.Int("high", t.High),
		logging.String("policy", string(t.Policy)),
		logging.String(logging.FieldEventType, "control_loop_started"),
	)

	for {
		if err := l.iterate(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped", logging.String(logging.FieldEventType, "control_loop_stopped"))
			return nil
		case <-l.after(l.interval):
		}
	}
}

func (l *Loop) iterate(ctx context.Context) error {
	reading, err := l.sampler.Sample(ctx, l.drives)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		l.engageFailSafe(ctx, err)
		return err
	}
	decision, err := l.controller.Adjust(ctx, reading)
	if err != nil {
		logging.ErrorWithContext(l.logger, "actuator write failed", "actuator_write_failed",
			logging.Error(err),
			logging.String("decision", decision.String()),
			logging.String(logging.FieldErrorHint, "check fan_address and pwm permissions"),
		)
		return err
	}
	l.logger.Debug("sample processed",
		logging.Int("temperature", reading),
		logging.String("decision", decision.String()),
	)
	return nil
}

func (l *Loop) engageFailSafe(ctx context.Context, cause error) {
	logging.ErrorWithContext(l.logger, "sensor read failed", "sensor_read_failed",
		logging.Error(cause),
		logging.Bool("failsafe", l.failSafe),
		logging.String(logging.FieldErrorHint, "check hddtemp and the configured disks"),
	)
	if !l.failSafe {
		return
	}
	if _, err := l.controller.Engage(ctx); err != nil {
		l.logger.Error("fail-safe engage failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "failsafe_failed"),
		)
		return
	}
	l.logger.Warn("fan forced to full speed after sensor failure",
		logging.String(logging.FieldEventType, "failsafe_engaged"),
		logging.String(logging.FieldImpact, "fan runs at maximum until restart"),
		logging.String(logging.FieldErrorHint, "restart hddfand once the sensor is fixed"),
	)
}
