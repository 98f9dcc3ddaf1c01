package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/row"
	sqlitestore "loom/internal/rowstore/sqlite"
)

// MustOpenStore opens a sqlite row store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlitestore.Store {
	t.Helper()

	store, err := sqlitestore.Open(cfg)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRow seeds a row at its workflow's first step.
func NewRow(t testing.TB, store *sqlitestore.Store, workflowType, firstStep string) *row.Row {
	t.Helper()

	created, err := store.NewRow(context.Background(), workflowType, firstStep)
	if err != nil {
		t.Fatalf("store.NewRow: %v", err)
	}
	return created
}

// SeededRow creates a row and moves it to the given status, worker, and
// error count in one call.
func SeededRow(t testing.TB, store *sqlitestore.Store, workflowType string, status row.Status, worker string, errorCount int) *row.Row {
	t.Helper()

	ctx := context.Background()
	created, err := store.NewRow(ctx, workflowType, status.Step)
	if err != nil {
		t.Fatalf("store.NewRow: %v", err)
	}
	if err := store.SetStatus(ctx, created.ID, status); err != nil {
		t.Fatalf("store.SetStatus: %v", err)
	}
	if worker != "" {
		if err := store.SetAssignment(ctx, created.ID, worker, "job-"+worker); err != nil {
			t.Fatalf("store.SetAssignment: %v", err)
		}
	}
	for i := 0; i < errorCount; i++ {
		if _, err := store.IncrementErrorCount(ctx, created.ID); err != nil {
			t.Fatalf("store.IncrementErrorCount: %v", err)
		}
	}
	refreshed, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return refreshed
}
