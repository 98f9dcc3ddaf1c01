package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loom/internal/catalog"
	"loom/internal/logging"
	"loom/internal/row"
	"loom/internal/rowstore"
	"loom/internal/steps"
)

// Runner drives one worker's assigned rows through their current steps.
type Runner struct {
	store    rowstore.Store
	catalog  *catalog.Catalog
	executor steps.Executor
	logger   *slog.Logger
	now      func() time.Time
}

// Summary reports the outcome of one worker batch.
type Summary struct {
	Worker    string
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	// Warnings carries human-readable lines describing failures and skips,
	// surfaced in the cycle summary notification.
	Warnings []string
}

// New constructs a worker runner.
func New(store rowstore.Store, cat *catalog.Catalog, executor steps.Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:    store,
		catalog:  cat,
		executor: executor,
		logger:   logger.With(logging.String(logging.FieldComponent, "runner")),
		now:      time.Now,
	}
}

// Run processes each row in sequence. State machine per row:
// step → Processing:step → {nextStep | Completed} on success,
// step → Processing:step → step (reverted) on failure.
func (r *Runner) Run(ctx context.Context, workerID string, rows []row.Row) Summary {
	summary := Summary{Worker: workerID}
	logger := r.logger.With(logging.String(logging.FieldWorker, workerID))

	for i := range rows {
		current := rows[i]
		rowLogger := logger.With(
			logging.Int64(logging.FieldRowID, current.ID),
			logging.String(logging.FieldWorkflow, current.WorkflowType),
			logging.String(logging.FieldStep, current.Status.Step),
		)

		if current.Status.Phase != row.PhaseIdle {
			rowLogger.Debug("row not idle; skipping", logging.String("status", current.Status.String()))
			summary.Skipped++
			continue
		}
		step := current.Status.Step
		if step == "" || !r.executor.Bound(step) {
			rowLogger.Info("status not actionable; skipping")
			summary.Skipped++
			continue
		}
		// A step bound to an executor may still not belong to this row's
		// workflow. Such rows are left for diagnostics to flag, never run.
		if !r.catalog.Known(current.WorkflowType) || !r.catalog.HasStep(current.WorkflowType, step) {
			rowLogger.Warn("step not part of workflow; skipping")
			summary.Skipped++
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("row %d skipped: step %q is not part of workflow %q", current.ID, step, current.WorkflowType))
			continue
		}

		summary.Processed++
		if err := r.runRow(ctx, rowLogger, &current); err != nil {
			summary.Failed++
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("row %d failed at %q: %v", current.ID, step, err))
			continue
		}
		summary.Succeeded++
	}

	return summary
}

func (r *Runner) runRow(ctx context.Context, logger *slog.Logger, current *row.Row) error {
	step := current.Status.Step
	ctx = logging.WithRowID(ctx, current.ID)
	ctx = logging.WithStep(ctx, step)

	if err := r.store.SetStatus(ctx, current.ID, row.InFlight(step)); err != nil {
		logger.Error("failed to mark row in flight", logging.Error(err))
		return fmt.Errorf("mark in flight: %w", err)
	}
	if err := r.store.SetLastAttempted(ctx, current.ID, r.now().UTC()); err != nil {
		// The attempt proceeds; a missing timestamp only delays staleness
		// detection by one cycle.
		logger.Warn("failed to stamp last attempted", logging.Error(err))
	}

	logger.Info("step started")
	execErr := r.executor.Execute(ctx, current)
	if execErr != nil {
		return r.handleFailure(ctx, logger, current, execErr)
	}

	next, ok := r.catalog.NextStep(current.WorkflowType, step)
	target := row.Completed()
	if ok {
		target = row.Idle(next)
	}
	if err := r.store.SetStatus(ctx, current.ID, target); err != nil {
		logger.Error("failed to persist step result", logging.Error(err))
		return fmt.Errorf("persist step result: %w", err)
	}

	logger.Info("step completed", logging.String("next_status", target.String()))
	return nil
}

func (r *Runner) handleFailure(ctx context.Context, logger *slog.Logger, current *row.Row, execErr error) error {
	step := current.Status.Step

	if err := r.store.SetStatus(ctx, current.ID, row.Idle(step)); err != nil {
		logger.Error("failed to revert row status", logging.Error(err))
	}
	count, err := r.store.IncrementErrorCount(ctx, current.ID)
	if err != nil {
		logger.Error("failed to increment error count", logging.Error(err))
	} else {
		logger.Warn("step failed",
			logging.Error(execErr),
			logging.Int("error_count", count),
		)
	}
	return execErr
}
