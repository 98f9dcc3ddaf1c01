package remote_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/remote"
	"loom/internal/row"
	"loom/internal/rowstore"
	remotestore "loom/internal/rowstore/remote"
	"loom/internal/testsupport"
)

func newStore(t *testing.T, fake *testsupport.FakeRemote) *remotestore.Store {
	t.Helper()
	client, err := remote.New(fake.URL(), time.Second)
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	store, err := remotestore.New(client, nil)
	if err != nil {
		t.Fatalf("remotestore.New: %v", err)
	}
	return store
}

func TestFetchActionableDecodesWireRows(t *testing.T) {
	fake := testsupport.NewFakeRemote(t)
	fake.Handle("getRowsNeedingProcessing", func(params map[string]any) (any, string) {
		return map[string]any{
			"rows": []map[string]any{
				{
					"row":            7,
					"workflow":       "SVG Design",
					"status":         "Processing: Upload Files",
					"worker":         "worker1",
					"job_id":         "job-7",
					"last_attempted": "2026-08-28T09:00:00Z",
					"error_count":    2,
					"notes":          "retrying",
				},
				{
					"row":      8,
					"workflow": "POD Shirt",
					"status":   "Download Image",
				},
			},
		}, ""
	})

	store := newStore(t, fake)
	rows, err := store.FetchActionable(context.Background(), rowstore.Filter{Limit: 20, Worker: "worker1"})
	if err != nil {
		t.Fatalf("FetchActionable: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.ID != 7 || first.WorkflowType != "SVG Design" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Status != row.InFlight("Upload Files") {
		t.Fatalf("status = %q, want in-flight Upload Files", first.Status.String())
	}
	if first.LastAttempted == nil || !first.LastAttempted.Equal(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last attempted: %v", first.LastAttempted)
	}
	if first.ErrorCount != 2 {
		t.Fatalf("error count = %d, want 2", first.ErrorCount)
	}

	second := rows[1]
	if second.Status != row.Idle("Download Image") || second.LastAttempted != nil {
		t.Fatalf("unexpected second row: %+v", second)
	}

	calls := fake.CallsTo("getRowsNeedingProcessing")
	if len(calls) != 1 {
		t.Fatalf("expected one fetch call, got %d", len(calls))
	}
	if calls[0].Params["limit"] != float64(20) || calls[0].Params["worker"] != "worker1" {
		t.Fatalf("unexpected fetch params: %v", calls[0].Params)
	}
}

func TestFetchActionableAcceptsNaiveTimestamps(t *testing.T) {
	fake := testsupport.NewFakeRemote(t)
	fake.Handle("getRowsNeedingProcessing", func(params map[string]any) (any, string) {
		return map[string]any{
			"rows": []map[string]any{
				{
					"row":            11,
					"workflow":       "SVG Design",
					"status":         "Processing: Upload Files",
					"last_attempted": "2026-08-28T09:15:30.123456",
				},
				{
					"row":            12,
					"workflow":       "SVG Design",
					"status":         "Processing: Upload Files",
					"last_attempted": "yesterdayish",
				},
			},
		}, ""
	})

	store := newStore(t, fake)
	rows, err := store.FetchActionable(context.Background(), rowstore.Filter{})
	if err != nil {
		t.Fatalf("FetchActionable: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	// Offset-less timestamps are read as UTC rather than dropped.
	want := time.Date(2026, 8, 28, 9, 15, 30, 123456000, time.UTC)
	if rows[0].LastAttempted == nil || !rows[0].LastAttempted.Equal(want) {
		t.Fatalf("last attempted = %v, want %v", rows[0].LastAttempted, want)
	}
	if rows[1].LastAttempted != nil {
		t.Fatalf("garbage timestamp should decode to nil, got %v", rows[1].LastAttempted)
	}
}

func TestWriteOperationsUseExpectedFunctions(t *testing.T) {
	fake := testsupport.NewFakeRemote(t)
	store := newStore(t, fake)
	ctx := context.Background()

	if err := store.SetAssignment(ctx, 7, " worker2 ", "job-7"); err != nil {
		t.Fatalf("SetAssignment: %v", err)
	}
	if err := store.SetStatus(ctx, 7, row.InFlight("Create JSON")); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := store.SetNotes(ctx, 7, "checked"); err != nil {
		t.Fatalf("SetNotes: %v", err)
	}
	at := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	if err := store.SetLastAttempted(ctx, 7, at); err != nil {
		t.Fatalf("SetLastAttempted: %v", err)
	}

	assignCalls := fake.CallsTo("assignRowWorker")
	if len(assignCalls) != 1 || assignCalls[0].Params["worker"] != "worker2" {
		t.Fatalf("unexpected assignment calls: %+v", assignCalls)
	}
	statusCalls := fake.CallsTo("updateRowStatus")
	if len(statusCalls) != 1 || statusCalls[0].Params["new_status"] != "Processing: Create JSON" {
		t.Fatalf("unexpected status calls: %+v", statusCalls)
	}
	if len(fake.CallsTo("updateRowNotes")) != 1 {
		t.Fatal("expected one notes call")
	}
	stampCalls := fake.CallsTo("updateLastAttempted")
	if len(stampCalls) != 1 || stampCalls[0].Params["timestamp"] != "2026-08-28T10:30:00Z" {
		t.Fatalf("unexpected timestamp calls: %+v", stampCalls)
	}
}

func TestErrorCountRoundTrip(t *testing.T) {
	fake := testsupport.NewFakeRemote(t)
	fake.Handle("incrementProgressErrorCount", func(params map[string]any) (any, string) {
		return map[string]any{"count": 3}, ""
	})
	fake.Handle("getProgressErrorCount", func(params map[string]any) (any, string) {
		return map[string]any{"count": 3}, ""
	})

	store := newStore(t, fake)
	ctx := context.Background()

	count, err := store.IncrementErrorCount(ctx, 9)
	if err != nil || count != 3 {
		t.Fatalf("IncrementErrorCount = %d, %v; want 3", count, err)
	}
	count, err = store.GetErrorCount(ctx, 9)
	if err != nil || count != 3 {
		t.Fatalf("GetErrorCount = %d, %v; want 3", count, err)
	}
}

func TestFetchActionablePropagatesFunctionError(t *testing.T) {
	fake := testsupport.NewFakeRemote(t)
	fake.Fail("getRowsNeedingProcessing", "sheet unavailable")

	store := newStore(t, fake)
	if _, err := store.FetchActionable(context.Background(), rowstore.Filter{}); err == nil {
		t.Fatal("expected error from failed fetch")
	}
}
