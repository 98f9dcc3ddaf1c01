// Package balance computes worker load from a row snapshot and selects the
// least-loaded worker for new assignments.
package balance
