// Package config loads runtime configuration for the taskmate CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see (*Config).LoadFile), JSON or YAML by
//     extension, named with --config.
//  3. Command-line flags bound by the CLI, which override earlier values.
//
// # File format
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "token_file": "/home/me/.taskmate/token",
//	  "timeout": "10s"
//	}
package config
