package rowstore

import (
	"context"
	"errors"
	"time"

	"loom/internal/row"
)

// ErrNotFound reports that the referenced row does not exist in the store.
var ErrNotFound = errors.New("row not found")

// Filter narrows FetchActionable results.
type Filter struct {
	// Worker restricts results to rows assigned to this worker when set.
	Worker string
	// Limit caps the number of returned rows when positive.
	Limit int
}

// Store is the row store client consumed by the pipeline. Every operation is
// an independent call that may fail transiently; failures are per-row and
// must never abort a batch.
type Store interface {
	// FetchActionable returns rows whose status makes them eligible for
	// assignment or execution. Ordering is not guaranteed.
	FetchActionable(ctx context.Context, filter Filter) ([]row.Row, error)
	// SetAssignment records the worker and job id for a row. Idempotent,
	// last write wins.
	SetAssignment(ctx context.Context, rowID int64, workerID, jobID string) error
	// SetStatus overwrites a row's status. The store does not validate the
	// value against the workflow catalog; that is the caller's job.
	SetStatus(ctx context.Context, rowID int64, status row.Status) error
	// SetNotes overwrites a row's free-text notes.
	SetNotes(ctx context.Context, rowID int64, notes string) error
	// SetLastAttempted stamps the row's last attempt timestamp.
	SetLastAttempted(ctx context.Context, rowID int64, at time.Time) error
	// IncrementErrorCount bumps the row's persistent error counter and
	// returns the new value.
	IncrementErrorCount(ctx context.Context, rowID int64) (int, error)
	// GetErrorCount reads the row's persistent error counter.
	GetErrorCount(ctx context.Context, rowID int64) (int, error)
}
