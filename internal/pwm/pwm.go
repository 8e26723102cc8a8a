// Package pwm writes fan drive levels to a sysfs PWM control file.
package pwm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hddfand/internal/faults"
)

// SysClassRoot anchors relative fan addresses such as "hwmon/hwmon2/pwm1".
const SysClassRoot = "/sys/class"

// ResolvePath expands a configured fan address into an absolute sysfs path.
func ResolvePath(address string) string {
	address = strings.TrimSpace(address)
	if address == "" || filepath.IsAbs(address) {
		return address
	}
	return filepath.Join(SysClassRoot, address)
}

// Writer persists drive levels to a PWM file. No read-back is performed.
type Writer struct {
	path string
}

// NewWriter constructs a writer for the given fan address.
func NewWriter(address string) *Writer {
	return &Writer{path: ResolvePath(address)}
}

// Path returns the resolved control file.
func (w *Writer) Path() string {
	return w.path
}

// Check verifies the control file exists and is a regular file.
func (w *Writer) Check() error {
	if w.path == "" {
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "check", "fan address not configured", nil)
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "check", w.path, err)
	}
	if info.IsDir() {
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "check", fmt.Sprintf("%s is a directory", w.path), nil)
	}
	return nil
}

// Write stores level in the control file.
func (w *Writer) Write(level int) error {
	if level < 0 {
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "write", fmt.Sprintf("negative level %d", level), nil)
	}
	// sysfs attributes are written in place and must already exist.
	file, err := os.OpenFile(w.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "write", w.path, err)
	}
	if _, err := file.WriteString(strconv.Itoa(level)); err != nil {
		_ = file.Close()
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "write", w.path, err)
	}
	if err := file.Close(); err != nil {
		return faults.Wrap(faults.ErrActuatorWrite, "pwm", "close", w.path, err)
	}
	return nil
}
