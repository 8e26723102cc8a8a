// Package config loads and validates hddfand configuration data.
//
// A configuration file is a flat set of key/value pairs. Files ending in
// .toml are decoded with go-toml; any other file uses the classic
// "key = value" format. Both produce the same string map, which environment
// variables named HDDFAND_<KEY> may override before FromMap converts it into
// a typed Config. Every failure is tagged with faults.ErrConfiguration so the
// CLI can reject a bad file before any process is detached.
package config
