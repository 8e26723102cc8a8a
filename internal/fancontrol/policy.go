package fancontrol

import (
	"fmt"

	"hddfand/internal/faults"
)

// Decision is the outcome of evaluating a reading against Thresholds.
type Decision int

const (
	// Hold keeps the current drive level.
	Hold Decision = iota
	// Engage drives the fan at the maximum level.
	Engage
	// Disengage drives the fan at the minimum level.
	Disengage
)

func (d Decision) String() string {
	switch d {
	case Engage:
		return "engage"
	case Disengage:
		return "disengage"
	default:
		return "hold"
	}
}

// Policy selects how readings between the bounds are treated.
type Policy string

const (
	// PolicyHysteresis engages above High, disengages below Low and holds in between.
	PolicyHysteresis Policy = "hysteresis"
	// PolicyThreshold engages above High and disengages otherwise; Low is unused.
	PolicyThreshold Policy = "threshold"
)

// MaxLevelLimit is the largest drive level a PWM file accepts.
const MaxLevelLimit = 255

// Thresholds is the immutable decision configuration of one instance.
type Thresholds struct {
	Low      int
	High     int
	MinLevel int
	MaxLevel int
	Policy   Policy
}

// Validate checks the ordering and range invariants.
func (t Thresholds) Validate() error {
	switch {
	case t.Low > t.High:
		return faults.Wrap(faults.ErrConfiguration, "fancontrol", "thresholds",
			fmt.Sprintf("low bound %d exceeds high bound %d", t.Low, t.High), nil)
	case t.MinLevel < 0 || t.MaxLevel > MaxLevelLimit:
		return faults.Wrap(faults.ErrConfiguration, "fancontrol", "thresholds",
			fmt.Sprintf("levels must be within 0..%d", MaxLevelLimit), nil)
	case t.MinLevel > t.MaxLevel:
		return faults.Wrap(faults.ErrConfiguration, "fancontrol", "thresholds",
			fmt.Sprintf("minimum level %d exceeds maximum level %d", t.MinLevel, t.MaxLevel), nil)
	}
	switch t.Policy {
	case PolicyHysteresis, PolicyThreshold:
		return nil
	default:
		return faults.Wrap(faults.ErrConfiguration, "fancontrol", "thresholds",
			fmt.Sprintf("unknown policy %q", t.Policy), nil)
	}
}

// Decide evaluates reading. The result depends only on the reading, never on
// the current drive level.
func (t Thresholds) Decide(reading int) Decision {
	if reading > t.High {
		return Engage
	}
	if t.Policy == PolicyThreshold || reading < t.Low {
		return Disengage
	}
	return Hold
}
