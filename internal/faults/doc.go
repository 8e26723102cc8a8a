// Package faults defines the error taxonomy shared by the hddfand daemon and CLI.
//
// Components wrap failures with one of the exported sentinel markers so callers
// can classify them with errors.Is without depending on the component that
// produced them. Markers describe what went wrong (lock artifact I/O, sensor,
// actuator, configuration), never how the caller should react.
package faults
