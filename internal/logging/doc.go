// Package logging configures the process-wide slog logger and provides the
// standardized attribute helpers and context plumbing used across loom.
//
// Components never construct handlers themselves; they accept a *slog.Logger
// and enrich it with WithContext so row, worker, and cycle identifiers follow
// the work through every package.
package logging
