// Package lease provides the worker-active guard that keeps pipeline cycles
// mutually exclusive.
//
// The guard is an explicit file lease rather than a process-wide boolean: a
// cycle that finds the lease held skips entirely, and release is guaranteed
// through the returned release function even on error paths.
package lease
