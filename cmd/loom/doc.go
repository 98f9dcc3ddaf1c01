// Package main hosts the loom CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's control API, local sqlite store operations for
// development, and configuration scaffolding. Configuration resolution and
// API client construction live in commandContext so subcommands stay small.
package main
