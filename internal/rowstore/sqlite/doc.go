// Package sqlite implements a local row store backend for development and
// tests. It mirrors the external row table's semantics (independent per-row
// mutations, last write wins) on top of a single SQLite database.
package sqlite
