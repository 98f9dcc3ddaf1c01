// Package diagnose scans a row snapshot for stuck in-flight work, repeated
// failures, and structural inconsistencies, recovering automatically where
// safe and escalating to a human otherwise.
//
// The engine iterates a read-only snapshot and issues row store writes as it
// goes; an individual write or notification failure is logged and the pass
// always runs to completion.
package diagnose
