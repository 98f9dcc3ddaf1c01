// Package config loads, normalizes, and validates loom's TOML configuration.
//
// Load resolves the config file (explicit path, ~/.config/loom/config.toml,
// or ./loom.toml), merges it over Default(), expands tilde paths, and rejects
// unusable values before any other subsystem starts.
package config
