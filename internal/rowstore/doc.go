// Package rowstore defines the narrow client surface the pipeline uses to
// read and mutate rows, plus shared filter and error types.
//
// Two backends implement Store: rowstore/remote drives the external row table
// through the RPC envelope, and rowstore/sqlite keeps rows in a local
// database for development and tests. Operations are independent per-row
// calls with no cross-row transactionality; callers must tolerate partial
// application across a batch.
package rowstore
