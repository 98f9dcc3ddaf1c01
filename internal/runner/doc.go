// Package runner executes the current step for each of a worker's assigned
// rows and advances or reverts their status based on the outcome.
//
// Rows are processed independently: one row's failure never aborts the rest
// of the batch, and a step failure reverts the row to its pre-processing
// status while bumping the persistent error counter.
package runner
