// Package steps binds workflow step names to the remote functions that
// perform them.
//
// The binding table is a finite mapping validated against the workflow
// catalog at startup, so a reachable step without an executor is a
// configuration error at boot rather than a silent skip at runtime.
package steps
