package fancontrol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hddfand/internal/faults"
	"hddfand/internal/logging"
)

// Actuator writes a drive level to the fan hardware.
type Actuator interface {
	Write(level int) error
}

// Actuation describes one successful actuator write.
type Actuation struct {
	Time     time.Time
	Level    int
	Decision Decision
}

// Recorder persists actuations. Failures are logged and never stop the fan.
type Recorder interface {
	Record(ctx context.Context, a Actuation) error
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRecorder records every write the controller performs.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithControllerLogger attaches a logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logging.NewComponentLogger(logger, "fancontrol")
	}
}

// Controller owns the drive level. It is not safe for concurrent use; the
// control loop is its only caller.
type Controller struct {
	thresholds Thresholds
	actuator   Actuator
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time

	level int
	known bool
}

// NewController validates thresholds and constructs a controller.
func NewController(thresholds Thresholds, actuator Actuator, opts ...ControllerOption) (*Controller, error) {
	if actuator == nil {
		return nil, errors.New("fancontrol: actuator is required")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		thresholds: thresholds,
		actuator:   actuator,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Thresholds returns the controller configuration.
func (c *Controller) Thresholds() Thresholds {
	return c.thresholds
}

// Level returns the last level written and whether any write has succeeded.
func (c *Controller) Level() (int, bool) {
	return c.level, c.known
}

// Engage writes the maximum level unless the last write already set it. It
// reports whether a write happened.
func (c *Controller) Engage(ctx context.Context) (bool, error) {
	if c.known && c.level == c.thresholds.MaxLevel {
		return false, nil
	}
	if err := c.write(ctx, c.thresholds.MaxLevel, Engage); err != nil {
		return false, err
	}
	return true, nil
}

// Disengage writes the minimum level.
func (c *Controller) Disengage(ctx context.Context) error {
	return c.write(ctx, c.thresholds.MinLevel, Disengage)
}

// Adjust decides on reading and applies the decision.
func (c *Controller) Adjust(ctx context.Context, reading int) (Decision, error) {
	decision := c.thresholds.Decide(reading)
	switch decision {
	case Engage:
		wrote, err := c.Engage(ctx)
		if err != nil {
			return decision, err
		}
		if wrote {
			c.logger.Info("fan engaged",
				logging.Int("temperature", reading),
				logging.Int("level", c.thresholds.MaxLevel),
				logging.String(logging.FieldEventType, "fan_engaged"),
			)
		}
	case Disengage:
		wasEngaged := c.known && c.level == c.thresholds.MaxLevel && c.thresholds.MaxLevel != c.thresholds.MinLevel
		if err := c.Disengage(ctx); err != nil {
			return decision, err
		}
		if wasEngaged {
			c.logger.Info("fan disengaged",
				logging.Int("temperature", reading),
				logging.Int("level", c.thresholds.MinLevel),
				logging.String(logging.FieldEventType, "fan_disengaged"),
			)
		}
	default:
		c.logger.Debug("holding fan level", logging.Int("temperature", reading))
	}
	return decision, nil
}

func (c *Controller) write(ctx context.Context, level int, decision Decision) error {
	if err := c.actuator.Write(level); err != nil {
		c.known = false
		if errors.Is(err, faults.ErrActuatorWrite) {
			return err
		}
		return faults.Wrap(faults.ErrActuatorWrite, "fancontrol", decision.String(), fmt.Sprintf("level %d", level), err)
	}
	c.level = level
	c.known = true

	if c.recorder != nil {
		actuation := Actuation{Time: c.now(), Level: level, Decision: decision}
		if err := c.recorder.Record(ctx, actuation); err != nil {
			logging.WarnWithContext(c.logger, "journal record failed", "journal_record_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check journal path permissions"),
				logging.String(logging.FieldImpact, "actuation history incomplete"),
			)
		}
	}
	return nil
}
