// Package pipeline orchestrates one full processing cycle: lease the run,
// snapshot actionable rows, balance and assign, execute per-worker batches,
// then diagnose the snapshot for stale and repeatedly failing rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"loom/internal/actionlog"
	"loom/internal/assign"
	"loom/internal/balance"
	"loom/internal/catalog"
	"loom/internal/config"
	"loom/internal/diagnose"
	"loom/internal/lease"
	"loom/internal/logging"
	"loom/internal/metrics"
	"loom/internal/notifications"
	"loom/internal/remote"
	"loom/internal/row"
	"loom/internal/rowstore"
	"loom/internal/runner"
)

// Cycle result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Result reports the outcome of one cycle.
type Result struct {
	CycleID       string
	Status        string
	RowsFetched   int
	RowsProcessed int
	Succeeded     int
	Failed        int
	Skipped       int
	// Assignments maps row id to the worker claimed during this cycle.
	Assignments map[int64]string
	Recovered   int
	Escalated   int
	Invalid     int
	Warnings    []string
	Duration    time.Duration
}

// Options adjusts a single cycle invocation.
type Options struct {
	// WorkerPool overrides the configured pool when non-empty. Used by the
	// manual trigger API to run a cycle against a subset of workers.
	WorkerPool []string
}

// Pipeline coordinates the assignment, execution, and diagnostics engines
// behind a single-flight lease.
type Pipeline struct {
	cfg      *config.Config
	store    rowstore.Store
	catalog  *catalog.Catalog
	assigner *assign.Engine
	runner   *runner.Runner
	diag     *diagnose.Engine
	notifier notifications.Service
	audit    actionlog.Logger
	guard    *lease.Lease
	caller   remote.Caller
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now func() time.Time

	followUpMu   sync.Mutex
	lastFollowUp map[string]time.Time
}

// Deps carries the constructed engines into the pipeline.
type Deps struct {
	Store       rowstore.Store
	Catalog     *catalog.Catalog
	Assigner    *assign.Engine
	Runner      *runner.Runner
	Diagnostics *diagnose.Engine
	Notifier    notifications.Service
	Audit       actionlog.Logger
	Lease       *lease.Lease
	// Caller is used for post-cycle follow-up functions; nil disables them.
	Caller  remote.Caller
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// New assembles a pipeline from its dependencies.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if deps.Store == nil {
		return nil, errors.New("row store required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("workflow catalog required")
	}
	if deps.Assigner == nil || deps.Runner == nil || deps.Diagnostics == nil {
		return nil, errors.New("assignment, runner, and diagnostics engines required")
	}
	if deps.Lease == nil {
		return nil, errors.New("cycle lease required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	audit := deps.Audit
	if audit == nil {
		audit = actionlog.NewLocal(deps.Logger)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		store:    deps.Store,
		catalog:  deps.Catalog,
		assigner: deps.Assigner,
		runner:   deps.Runner,
		diag:     deps.Diagnostics,
		notifier: notifier,
		audit:    audit,
		guard:    deps.Lease,
		caller:   deps.Caller,
		metrics:  deps.Metrics,
		logger:   logger.With(logging.String(logging.FieldComponent, "pipeline")),

		now:          time.Now,
		lastFollowUp: make(map[string]time.Time),
	}, nil
}

// RunCycle executes one full cycle. Overlapping invocations are collapsed:
// when another cycle holds the lease the call returns a skipped result
// immediately instead of queueing. Only a failed row snapshot fetch yields a
// non-nil error; per-row failures surface as warnings in the result.
func (p *Pipeline) RunCycle(ctx context.Context, opts Options) (Result, error) {
	result := Result{
		CycleID:     uuid.NewString(),
		Assignments: map[int64]string{},
	}
	ctx = logging.WithCycleID(ctx, result.CycleID)
	logger := p.logger.With(logging.String(logging.FieldCycleID, result.CycleID))

	release, err := p.guard.TryAcquire()
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			logger.Info("cycle already in progress; skipping")
			result.Status = StatusSkipped
			p.observeCycle(result)
			return result, nil
		}
		result.Status = StatusError
		p.observeCycle(result)
		return result, fmt.Errorf("acquire cycle lease: %w", err)
	}
	defer release()

	started := time.Now()
	pool := p.workerPool(opts)
	logger.Info("cycle started",
		logging.Int("pool_size", len(pool)),
		logging.Int("max_rows", p.cfg.Pipeline.MaxRowsPerRun),
	)

	rows, err := p.store.FetchActionable(ctx, rowstore.Filter{Limit: p.cfg.Pipeline.MaxRowsPerRun})
	if err != nil {
		logger.Error("failed to fetch actionable rows", logging.Error(err))
		if notifyErr := p.notifier.NotifyError(ctx, err, "fetching actionable rows"); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		p.audit.Record(ctx, "Pipeline cycle", "error", fmt.Sprintf("fetch failed: %v", err), actionlog.AgentManager)
		result.Status = StatusError
		result.Duration = time.Since(started)
		p.observeCycle(result)
		return result, fmt.Errorf("fetch actionable rows: %w", err)
	}
	result.RowsFetched = len(rows)

	if err := p.notifier.NotifyCycleStarted(ctx, len(rows)); err != nil {
		logger.Warn("cycle start notification failed", logging.Error(err))
	}

	unassigned, batches := partition(rows)
	loads := balance.ComputeLoadMap(rows)
	result.Assignments = p.assigner.Assign(ctx, unassigned, pool, loads, p.cfg.Pipeline.CapacityPerWorker)

	// Execution runs against the fetched snapshot, so rows claimed above
	// wait until the next cycle. One cycle of lag keeps assignment and
	// execution reads consistent with a single snapshot.
	for _, worker := range pool {
		batch := batches[worker]
		if len(batch) == 0 {
			continue
		}
		summary := p.runner.Run(ctx, worker, batch)
		result.RowsProcessed += summary.Processed
		result.Succeeded += summary.Succeeded
		result.Failed += summary.Failed
		result.Skipped += summary.Skipped
		result.Warnings = append(result.Warnings, summary.Warnings...)
	}

	report := p.diag.Run(ctx, rows)
	result.Recovered = report.Recovered
	result.Escalated = report.Escalated
	result.Invalid = report.Invalid
	result.Warnings = append(result.Warnings, report.Warnings...)

	p.runFollowUps(ctx, logger)

	result.Status = StatusSuccess
	result.Duration = time.Since(started)
	p.observeCycle(result)
	p.audit.Record(ctx, "Pipeline cycle", result.Status, p.auditNotes(result), actionlog.AgentManager)

	if err := p.notifier.NotifyCycleCompleted(ctx, result.RowsProcessed, result.Failed, result.Duration); err != nil {
		logger.Warn("cycle completion notification failed", logging.Error(err))
	}
	if len(result.Warnings) > 0 {
		if err := p.notifier.NotifyCycleSummary(ctx, result.Status, result.RowsProcessed, result.Warnings); err != nil {
			logger.Warn("cycle summary notification failed", logging.Error(err))
		}
	}

	logger.Info("cycle completed",
		logging.Int("fetched", result.RowsFetched),
		logging.Int("assigned", len(result.Assignments)),
		logging.Int("processed", result.RowsProcessed),
		logging.Int("failed", result.Failed),
		logging.Int("recovered", result.Recovered),
		logging.Int("escalated", result.Escalated),
	)
	return result, nil
}

func (p *Pipeline) workerPool(opts Options) []string {
	if len(opts.WorkerPool) > 0 {
		return opts.WorkerPool
	}
	return p.cfg.Pipeline.WorkerPool
}

// followUpCooldown bounds how often a follow-up function is re-triggered
// when cycles run closer together than the remote side expects.
const followUpCooldown = 20 * time.Second

// runFollowUps invokes post-cycle remote functions, typically report or
// summary generators on the remote side. Failures are logged and ignored.
func (p *Pipeline) runFollowUps(ctx context.Context, logger *slog.Logger) {
	if p.caller == nil || len(p.cfg.Pipeline.FollowUps) == 0 {
		return
	}
	for _, fn := range p.cfg.Pipeline.FollowUps {
		fn = strings.TrimSpace(fn)
		if fn == "" {
			continue
		}
		if !p.followUpDue(fn) {
			logger.Debug("follow-up function on cooldown", logging.String(logging.FieldFunction, fn))
			continue
		}
		if _, err := p.caller.Call(ctx, fn, remote.Params{}); err != nil {
			logger.Warn("follow-up function failed",
				logging.String(logging.FieldFunction, fn),
				logging.Error(err),
			)
			continue
		}
		logger.Debug("follow-up function completed", logging.String(logging.FieldFunction, fn))
	}
}

// followUpDue reports whether the cooldown for fn has elapsed and, when it
// has, records the new trigger time.
func (p *Pipeline) followUpDue(fn string) bool {
	p.followUpMu.Lock()
	defer p.followUpMu.Unlock()

	current := p.now()
	if last, ok := p.lastFollowUp[fn]; ok && current.Sub(last) < followUpCooldown {
		return false
	}
	p.lastFollowUp[fn] = current
	return true
}

func (p *Pipeline) observeCycle(result Result) {
	if p.metrics == nil {
		return
	}
	p.metrics.CyclesTotal.WithLabelValues(result.Status).Inc()
	p.metrics.RowsProcessed.Add(float64(result.RowsProcessed))
	p.metrics.RowsAssigned.Add(float64(len(result.Assignments)))
	p.metrics.StepFailures.Add(float64(result.Failed))
	p.metrics.RowsRecovered.Add(float64(result.Recovered))
	p.metrics.RowsEscalated.Add(float64(result.Escalated))
	if result.Status != StatusSkipped {
		p.metrics.CycleDuration.Observe(result.Duration.Seconds())
	}
}

func (p *Pipeline) auditNotes(result Result) string {
	return fmt.Sprintf("fetched=%d assigned=%d processed=%d succeeded=%d failed=%d recovered=%d escalated=%d",
		result.RowsFetched, len(result.Assignments), result.RowsProcessed,
		result.Succeeded, result.Failed, result.Recovered, result.Escalated)
}

// partition splits a snapshot into unassigned rows and per-worker batches,
// preserving snapshot order within each group.
func partition(rows []row.Row) ([]row.Row, map[string][]row.Row) {
	var unassigned []row.Row
	batches := make(map[string][]row.Row)
	for _, r := range rows {
		worker := r.Worker()
		if worker == "" {
			unassigned = append(unassigned, r)
			continue
		}
		batches[worker] = append(batches[worker], r)
	}
	return unassigned, batches
}
