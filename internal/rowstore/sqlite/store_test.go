package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"loom/internal/row"
	"loom/internal/rowstore"
	"loom/internal/testsupport"
)

func TestNewRowStartsIdleAtFirstStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created, err := store.NewRow(ctx, "POD Shirt", "Download Image")
	if err != nil {
		t.Fatalf("NewRow: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected row id to be assigned")
	}
	if created.Status != row.Idle("Download Image") {
		t.Fatalf("status = %q, want idle at Download Image", created.Status.String())
	}
	if created.Assigned() || created.ErrorCount != 0 {
		t.Fatalf("unexpected fresh row: %+v", created)
	}
}

func TestNewRowRequiresWorkflowType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewRow(context.Background(), "  ", "Download Image"); err == nil {
		t.Fatal("expected error for blank workflow type")
	}
}

func TestFetchActionableExcludesTerminalRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	idle := testsupport.NewRow(t, store, "SVG Design", "Download Image")
	inFlight := testsupport.SeededRow(t, store, "SVG Design", row.InFlight("Upload Files"), "worker1", 0)
	testsupport.SeededRow(t, store, "SVG Design", row.Completed(), "", 0)
	testsupport.SeededRow(t, store, "SVG Design", row.Supervisor(), "", 0)

	rows, err := store.FetchActionable(ctx, rowstore.Filter{})
	if err != nil {
		t.Fatalf("FetchActionable: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 actionable", len(rows))
	}
	if rows[0].ID != idle.ID || rows[1].ID != inFlight.ID {
		t.Fatalf("unexpected ordering: %v then %v", rows[0].ID, rows[1].ID)
	}
}

func TestFetchActionableFilterAndLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeededRow(t, store, "SVG Design", row.Idle("Download Image"), "worker1", 0)
	mine := testsupport.SeededRow(t, store, "SVG Design", row.Idle("Download Image"), "worker2", 0)
	testsupport.SeededRow(t, store, "SVG Design", row.Idle("Download Image"), "worker2", 0)

	rows, err := store.FetchActionable(ctx, rowstore.Filter{Worker: "worker2", Limit: 1})
	if err != nil {
		t.Fatalf("FetchActionable: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != mine.ID {
		t.Fatalf("unexpected filtered rows: %+v", rows)
	}
}

func TestUpdatesRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := testsupport.NewRow(t, store, "Coloring Book", "Download Image")

	if err := store.SetAssignment(ctx, created.ID, "worker1", "job-1"); err != nil {
		t.Fatalf("SetAssignment: %v", err)
	}
	if err := store.SetStatus(ctx, created.ID, row.InFlight("Download Image")); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetNotes(ctx, created.ID, "first pass"); err != nil {
		t.Fatalf("SetNotes: %v", err)
	}
	at := time.Now().UTC().Truncate(time.Second)
	if err := store.SetLastAttempted(ctx, created.ID, at); err != nil {
		t.Fatalf("SetLastAttempted: %v", err)
	}

	stored, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Worker() != "worker1" || stored.JobID != "job-1" {
		t.Fatalf("unexpected assignment: %+v", stored)
	}
	if stored.Status != row.InFlight("Download Image") {
		t.Fatalf("status = %q", stored.Status.String())
	}
	if stored.Notes != "first pass" {
		t.Fatalf("notes = %q", stored.Notes)
	}
	if stored.LastAttempted == nil || !stored.LastAttempted.Equal(at) {
		t.Fatalf("last attempted = %v, want %v", stored.LastAttempted, at)
	}
}

func TestErrorCountLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := testsupport.NewRow(t, store, "POD Shirt", "Download Image")

	for want := 1; want <= 3; want++ {
		count, err := store.IncrementErrorCount(ctx, created.ID)
		if err != nil {
			t.Fatalf("IncrementErrorCount: %v", err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
	}

	if err := store.ResetErrorCount(ctx, created.ID); err != nil {
		t.Fatalf("ResetErrorCount: %v", err)
	}
	count, err := store.GetErrorCount(ctx, created.ID)
	if err != nil || count != 0 {
		t.Fatalf("count after reset = %d, %v", count, err)
	}
}

func TestMissingRowReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, err := store.GetByID(ctx, 999); !errors.Is(err, rowstore.ErrNotFound) {
		t.Fatalf("GetByID error = %v, want ErrNotFound", err)
	}
	if err := store.SetStatus(ctx, 999, row.Completed()); !errors.Is(err, rowstore.ErrNotFound) {
		t.Fatalf("SetStatus error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetErrorCount(ctx, 999); !errors.Is(err, rowstore.ErrNotFound) {
		t.Fatalf("GetErrorCount error = %v, want ErrNotFound", err)
	}
}

func TestHealthSummaryCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewRow(t, store, "SVG Design", "Download Image")
	testsupport.SeededRow(t, store, "SVG Design", row.InFlight("Upload Files"), "worker1", 0)
	testsupport.SeededRow(t, store, "SVG Design", row.Completed(), "", 0)
	testsupport.SeededRow(t, store, "SVG Design", row.Supervisor(), "", 0)

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 4 || health.Idle != 1 || health.InFlight != 1 || health.Completed != 1 || health.Supervisor != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}
