// Package main hosts the hddfand CLI entrypoint and command graph.
//
// The Cobra-based command tree controls the single daemon instance through
// its lock artifact and signals (start, stop, restart, status), hosts the
// instance itself (run in the foreground, or the hidden daemon stages of the
// detachment chain) and scaffolds configuration. Configuration is resolved
// once per invocation by the command context so subcommands only deal with
// presentation.
package main
