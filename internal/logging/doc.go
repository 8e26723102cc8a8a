// Package logging assembles structured slog loggers and formatting helpers used
// across hddfand components.
//
// It owns the console/JSON handlers, the split routing that sends DEBUG/INFO to
// the regular outputs and WARN/ERROR to the error outputs, the optional syslog
// sink used by detached instances, and run-id tagging. Loggers are built once
// and passed into component constructors; there is no package-level registry.
// NewNop provides a silent logger for tests and wiring code that cannot fail.
package logging
