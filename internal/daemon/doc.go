// Package daemon owns the hddfand process lifecycle.
//
// Manager turns a foreground invocation into a single detached instance,
// enforces that only one instance runs per lock artifact, and services
// stop/restart requests against a running instance using only the artifact
// and signals. The control loop is injected as a Body when the final process
// calls Run.
//
// Go cannot fork a running runtime, so detachment re-executes the binary
// twice: the first child starts a new session and immediately launches the
// second, which is therefore not a session leader and can never acquire a
// controlling terminal. The second child is the daemon instance.
//
// An artifact whose process no longer exists is stale and is reclaimed by
// Start and Stop, so a crashed instance never blocks the next one.
package daemon
