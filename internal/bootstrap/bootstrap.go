// Package bootstrap assembles the pipeline and its engines from loaded
// configuration. Both the daemon and the CLI's local run path use it.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"loom/internal/actionlog"
	"loom/internal/assign"
	"loom/internal/catalog"
	"loom/internal/config"
	"loom/internal/diagnose"
	"loom/internal/lease"
	"loom/internal/logging"
	"loom/internal/metrics"
	"loom/internal/notifications"
	"loom/internal/pipeline"
	"loom/internal/remote"
	"loom/internal/rowstore"
	remotestore "loom/internal/rowstore/remote"
	sqlitestore "loom/internal/rowstore/sqlite"
	"loom/internal/runner"
	"loom/internal/steps"
)

// Components carries the assembled pipeline and the parts callers need to
// hold onto.
type Components struct {
	Pipeline *pipeline.Pipeline
	Store    rowstore.Store
	Catalog  *catalog.Catalog
	Notifier notifications.Service
	Metrics  *metrics.Metrics
}

// Build wires the row store, step executor, and pipeline engines from
// configuration. Step bindings are validated against the workflow catalog
// before anything else is constructed.
func Build(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	cat := catalog.Default()
	bindings := steps.NewBindings(steps.DefaultBindings())
	if err := bindings.Validate(cat); err != nil {
		return nil, fmt.Errorf("validate step bindings: %w", err)
	}

	var caller remote.Caller
	if baseURL := strings.TrimSpace(cfg.Remote.BaseURL); baseURL != "" {
		timeout := time.Duration(cfg.Remote.TimeoutSeconds) * time.Second
		client, err := remote.New(baseURL, timeout)
		if err != nil {
			return nil, fmt.Errorf("build remote client: %w", err)
		}
		caller = client
	}

	var store rowstore.Store
	switch cfg.Store.Backend {
	case "remote":
		remoteStore, err := remotestore.New(caller, logger)
		if err != nil {
			return nil, fmt.Errorf("build remote row store: %w", err)
		}
		store = remoteStore
	case "sqlite":
		sqliteStore, err := sqlitestore.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite row store: %w", err)
		}
		store = sqliteStore
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	var executor steps.Executor
	if caller != nil {
		remoteExecutor, err := steps.NewRemoteExecutor(caller, bindings)
		if err != nil {
			return nil, fmt.Errorf("build step executor: %w", err)
		}
		executor = remoteExecutor
	} else {
		logger.Warn("no remote endpoint configured; steps run in simulation mode")
		executor = steps.NewSimulatedExecutor(bindings, logger)
	}

	notifier := notifications.NewService(cfg)
	audit := actionlog.NewLocal(logger)
	if caller != nil {
		audit = actionlog.NewRemote(caller, logger)
	}

	m := metrics.New()
	pipe, err := pipeline.New(cfg, pipeline.Deps{
		Store:    store,
		Catalog:  cat,
		Assigner: assign.New(store, logger),
		Runner:   runner.New(store, cat, executor, logger),
		Diagnostics: diagnose.New(store, cat, notifier, logger, diagnose.Config{
			StaleThreshold:   time.Duration(cfg.Pipeline.StaleThresholdMinutes) * time.Minute,
			FailureThreshold: cfg.Pipeline.FailureThreshold,
		}),
		Notifier: notifier,
		Audit:    audit,
		Lease:    lease.New(cfg.Paths.DataDir, "cycle.lock"),
		Caller:   caller,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}
	return &Components{
		Pipeline: pipe,
		Store:    store,
		Catalog:  cat,
		Notifier: notifier,
		Metrics:  m,
	}, nil
}
