package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"loom/internal/api"
	"loom/internal/bootstrap"
	"loom/internal/config"
	"loom/internal/daemon"
	"loom/internal/lease"
	"loom/internal/row"
	sqlitestore "loom/internal/rowstore/sqlite"
	"loom/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *sqlitestore.Store) {
	t.Helper()

	components, err := bootstrap.Build(cfg, nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	store, ok := components.Store.(*sqlitestore.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", components.Store)
	}
	t.Cleanup(func() { store.Close() })

	d, err := daemon.New(cfg, components.Pipeline, components.Store, components.Metrics, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, store
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := startDaemon(t, cfg)
	if !first.Status().Running {
		t.Fatal("first daemon should be running")
	}

	components, err := bootstrap.Build(cfg, nil)
	if err != nil {
		t.Fatalf("bootstrap.Build: %v", err)
	}
	second, err := daemon.New(cfg, components.Pipeline, components.Store, components.Metrics, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon must fail to start while the first holds the lock")
	}
}

func TestManualRunEndpointDrivesCycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := startDaemon(t, cfg)

	seeded := testsupport.SeededRow(t, store, "SVG Design", row.Idle("Upload Files"), "worker1", 0)

	client := api.NewClient(d.APIAddr(), "")
	result, err := client.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("client.Run: %v", err)
	}
	if result.Status != "success" || result.RowsProcessed != 1 {
		t.Fatalf("unexpected cycle result: %+v", result)
	}

	stored, err := store.GetByID(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != row.Idle("Create JSON") {
		t.Fatalf("row = %q, want advanced to Create JSON", stored.Status.String())
	}

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("client.Status: %v", err)
	}
	if !status.Running || status.LastCycle == nil || status.LastCycle.CycleID != result.CycleID {
		t.Fatalf("status must report the last cycle: %+v", status)
	}
}

func TestRowsEndpointFiltersByWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := startDaemon(t, cfg)

	testsupport.SeededRow(t, store, "SVG Design", row.Idle("Upload Files"), "worker1", 0)
	mine := testsupport.SeededRow(t, store, "POD Shirt", row.Idle("Download Image"), "worker2", 0)

	client := api.NewClient(d.APIAddr(), "")
	rows, err := client.Rows(context.Background(), "worker2")
	if err != nil {
		t.Fatalf("client.Rows: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != mine.ID {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestBearerTokenGuardsAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret-token"
	d, _ := startDaemon(t, cfg)

	unauthorized := api.NewClient(d.APIAddr(), "")
	if _, err := unauthorized.Status(context.Background()); err == nil {
		t.Fatal("expected unauthorized error without token")
	}

	wrong := api.NewClient(d.APIAddr(), "other-token")
	if _, err := wrong.Status(context.Background()); err == nil {
		t.Fatal("expected unauthorized error with wrong token")
	}

	authorized := api.NewClient(d.APIAddr(), "secret-token")
	if _, err := authorized.Status(context.Background()); err != nil {
		t.Fatalf("authorized request failed: %v", err)
	}

	// Health stays open for probes regardless of the token.
	if !unauthorized.Healthy(context.Background()) {
		t.Fatal("health probe must not require authentication")
	}
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := startDaemon(t, cfg)

	client := api.NewClient(d.APIAddr(), "")
	if _, err := client.Run(context.Background(), nil); err != nil {
		t.Fatalf("client.Run: %v", err)
	}

	resp, err := http.Get("http://" + d.APIAddr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
}

func TestRunConflictWhileCycleInProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := startDaemon(t, cfg)

	guard := lease.New(cfg.Paths.DataDir, "cycle.lock")
	release, err := guard.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer release()

	client := api.NewClient(d.APIAddr(), "")
	if _, err := client.Run(context.Background(), nil); !errors.Is(err, api.ErrCycleInProgress) {
		t.Fatalf("expected ErrCycleInProgress, got %v", err)
	}
}
