package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAlreadyRunning    = errors.New("daemon already running")
	ErrLockArtifact      = errors.New("lock artifact error")
	ErrSensorUnavailable = errors.New("sensor unavailable")
	ErrSensorRead        = errors.New("sensor read error")
	ErrActuatorWrite     = errors.New("actuator write error")
	ErrConfiguration     = errors.New("configuration error")
	ErrStopTimeout       = errors.New("stop timeout")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker. The marker should be one of the exported sentinel
// errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		if err == nil {
			return errors.New(detail)
		}
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
