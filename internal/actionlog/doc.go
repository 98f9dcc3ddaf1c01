// Package actionlog records pipeline actions to the external audit trail.
//
// Recording is strictly best-effort: a failed write is logged locally and
// never interrupts the work being recorded.
package actionlog
