// Package hddtemp reads hard drive temperatures through the hddtemp binary.
//
// The binary is resolved once when the Reader is constructed so a missing
// installation is reported before the daemon detaches. Each sample runs the
// binary against the configured drives under a bounded timeout and reduces
// the parsed values to the hottest drive.
package hddtemp
