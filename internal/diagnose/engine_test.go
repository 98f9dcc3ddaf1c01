package diagnose_test

import (
	"context"
	"testing"
	"time"

	"loom/internal/catalog"
	"loom/internal/diagnose"
	"loom/internal/notifications"
	"loom/internal/row"
	"loom/internal/testsupport"
)

// recordingNotifier captures escalations for assertions.
type recordingNotifier struct {
	notifications.Service
	escalations []notifications.Escalation
}

func newRecordingNotifier(t *testing.T) *recordingNotifier {
	cfg := testsupport.NewConfig(t)
	return &recordingNotifier{Service: notifications.NewService(cfg)}
}

func (r *recordingNotifier) NotifyEscalation(ctx context.Context, escalation notifications.Escalation) error {
	r.escalations = append(r.escalations, escalation)
	return nil
}

func minutesAgo(minutes int) *time.Time {
	at := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	return &at
}

func TestRunRecoversStaleInFlightRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seeded := testsupport.SeededRow(t, store, "SVG Design", row.InFlight("Upload Files"), "worker1", 0)
	snapshot := *seeded
	snapshot.LastAttempted = minutesAgo(30)

	engine := diagnose.New(store, catalog.Default(), newRecordingNotifier(t), nil, diagnose.Config{
		StaleThreshold: 15 * time.Minute,
	})
	report := engine.Run(ctx, []row.Row{snapshot})

	if report.Recovered != 1 {
		t.Fatalf("recovered = %d, want 1", report.Recovered)
	}
	stored, err := store.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != row.Idle("Upload Files") {
		t.Fatalf("status = %q, want reverted to Upload Files", stored.Status.String())
	}
	if stored.Notes == "" {
		t.Fatal("expected a recovery note on the row")
	}
}

func TestRunLeavesFreshInFlightRowAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seeded := testsupport.SeededRow(t, store, "SVG Design", row.InFlight("Upload Files"), "worker1", 0)
	snapshot := *seeded
	snapshot.LastAttempted = minutesAgo(5)

	engine := diagnose.New(store, catalog.Default(), newRecordingNotifier(t), nil, diagnose.Config{
		StaleThreshold: 15 * time.Minute,
	})
	report := engine.Run(ctx, []row.Row{snapshot})

	if report.Recovered != 0 {
		t.Fatalf("recovered = %d, want 0", report.Recovered)
	}
	stored, err := store.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != row.InFlight("Upload Files") {
		t.Fatalf("status = %q, want unchanged in-flight", stored.Status.String())
	}
}

func TestRunIgnoresInFlightRowWithoutTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seeded := testsupport.SeededRow(t, store, "SVG Design", row.InFlight("Upload Files"), "worker1", 0)

	engine := diagnose.New(store, catalog.Default(), newRecordingNotifier(t), nil, diagnose.Config{})
	report := engine.Run(ctx, []row.Row{*seeded})

	if report.Recovered != 0 {
		t.Fatalf("recovered = %d, want 0 for missing timestamp", report.Recovered)
	}
}

func TestRunEscalatesAtFailureThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seeded := testsupport.SeededRow(t, store, "POD Shirt", row.Idle("Upscale Image"), "worker1", 3)
	below := testsupport.SeededRow(t, store, "POD Shirt", row.Idle("Upscale Image"), "worker1", 2)

	notifier := newRecordingNotifier(t)
	engine := diagnose.New(store, catalog.Default(), notifier, nil, diagnose.Config{FailureThreshold: 3})
	report := engine.Run(ctx, []row.Row{*seeded, *below})

	if report.Escalated != 1 {
		t.Fatalf("escalated = %d, want 1", report.Escalated)
	}
	stored, err := store.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != row.Supervisor() {
		t.Fatalf("status = %q, want Supervisor", stored.Status.String())
	}
	if len(notifier.escalations) != 1 || notifier.escalations[0].RowID != seeded.ID {
		t.Fatalf("unexpected escalations: %+v", notifier.escalations)
	}

	kept, err := store.GetByID(ctx, below.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if kept.Status.Terminal() {
		t.Fatalf("row below threshold must not escalate, got %q", kept.Status.String())
	}
}

func TestRunEscalationTakesPrecedenceOverStaleness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	seeded := testsupport.SeededRow(t, store, "SVG Design", row.InFlight("Upload Files"), "worker1", 4)
	snapshot := *seeded
	snapshot.LastAttempted = minutesAgo(60)

	notifier := newRecordingNotifier(t)
	engine := diagnose.New(store, catalog.Default(), notifier, nil, diagnose.Config{
		StaleThreshold:   15 * time.Minute,
		FailureThreshold: 3,
	})
	report := engine.Run(ctx, []row.Row{snapshot})

	if report.Escalated != 1 || report.Recovered != 0 {
		t.Fatalf("report = %+v, want escalation without recovery", report)
	}
	stored, err := store.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != row.Supervisor() {
		t.Fatalf("status = %q, want Supervisor", stored.Status.String())
	}
	if len(notifier.escalations) != 1 {
		t.Fatalf("expected an escalation notification, got %d", len(notifier.escalations))
	}
}

func TestRunFlagsStructurallyInvalidRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	unknownWorkflow := testsupport.SeededRow(t, store, "Sticker Pack", row.Idle("Download Image"), "", 0)
	unknownStep := testsupport.SeededRow(t, store, "SVG Design", row.Idle("Hand Finishing"), "", 0)

	engine := diagnose.New(store, catalog.Default(), newRecordingNotifier(t), nil, diagnose.Config{})
	report := engine.Run(ctx, []row.Row{*unknownWorkflow, *unknownStep})

	if report.Invalid != 2 {
		t.Fatalf("invalid = %d, want 2", report.Invalid)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("warnings = %v, want two entries", report.Warnings)
	}
	for _, id := range []int64{unknownWorkflow.ID, unknownStep.ID} {
		stored, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if stored.Notes == "" {
			t.Fatalf("row %d: expected a diagnostic note", id)
		}
		if stored.Status.Terminal() {
			t.Fatalf("row %d: structural problems must not change status", id)
		}
	}
}

func TestRunSkipsTerminalRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	done := testsupport.SeededRow(t, store, "SVG Design", row.Completed(), "worker1", 5)

	notifier := newRecordingNotifier(t)
	engine := diagnose.New(store, catalog.Default(), notifier, nil, diagnose.Config{FailureThreshold: 3})
	report := engine.Run(ctx, []row.Row{*done})

	if report.Escalated != 0 || report.Recovered != 0 || report.Invalid != 0 {
		t.Fatalf("terminal rows must be ignored, got %+v", report)
	}
	if len(notifier.escalations) != 0 {
		t.Fatalf("unexpected escalations: %+v", notifier.escalations)
	}
}
