// Package config defines the configuration of a glomers node process.
//
// The same Config object is used by every command of the glomers binary. Values
// come from command line flags, and optionally from a configuration file in
// Config.DataDir:
//
//	glomers.toml // (or glomers.yaml, glomers.json) overrides for any flag
//
// A node talks to its harness over stdin and stdout, so logs never go to
// stdout. They are written to stderr and, when LogFile is set, duplicated as
// JSON into that file.
package config
