package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "fan_engaged").
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRunID identifies a single daemon instance across all of its log lines.
	FieldRunID = "run_id"
	// FieldPID is the process identifier a lifecycle message refers to.
	FieldPID = "pid"
	// FieldLockPath is the lock artifact location.
	FieldLockPath = "lock_path"
	// FieldDevice is a monitored drive device node.
	FieldDevice = "device"
)
