// Package fancontrol decides and applies fan drive levels from drive
// temperatures.
//
// Thresholds holds the immutable bounds and the decision policy. Controller
// applies decisions to an Actuator, skipping redundant full-speed writes and
// recording every write it performs. Loop is the sequential
// sample/decide/actuate/sleep cycle hosted by a running daemon instance; it
// returns on the first sensor or actuator failure and exits cleanly when its
// context is cancelled.
package fancontrol
