// Package preflight provides readiness checks for the sensor program, drives,
// fan control file and state paths hddfand depends on.
//
// These checks run in two contexts:
//   - "hddfand config validate" runs RunAll and fails when a check fails.
//   - "hddfand status" displays the same results next to the instance state.
//
// The daemon itself does not depend on this package; it performs the fatal
// subset (sensor lookup, control file) while preparing an instance.
package preflight
