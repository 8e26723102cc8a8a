// Package journal persists the history of fan drive level writes in SQLite.
//
// Only actuator writes are recorded, never sensor readings. The running
// daemon appends entries; the status command reads the most recent ones.
// Journal failures are reported to callers but are never meant to stop the
// control loop.
package journal
