// Package assign hands unassigned rows to the least-loaded worker under a
// per-worker capacity cap, persisting each assignment as it is made.
package assign
