package diagnose

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"loom/internal/catalog"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/row"
	"loom/internal/rowstore"
)

// Default thresholds; overridable via Config.
const (
	DefaultStaleThreshold   = 15 * time.Minute
	DefaultFailureThreshold = 3
)

// Config carries the diagnostic thresholds.
type Config struct {
	StaleThreshold   time.Duration
	FailureThreshold int
}

// Report summarizes one diagnostics pass.
type Report struct {
	Recovered int
	Escalated int
	Invalid   int
	// Warnings carries human-readable lines for the cycle summary.
	Warnings []string
}

// Engine runs the staleness and repeated-failure checks.
type Engine struct {
	store            rowstore.Store
	catalog          *catalog.Catalog
	notifier         notifications.Service
	logger           *slog.Logger
	staleThreshold   time.Duration
	failureThreshold int
	now              func() time.Time
}

// New constructs a diagnostics engine.
func New(store rowstore.Store, cat *catalog.Catalog, notifier notifications.Service, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	staleThreshold := cfg.StaleThreshold
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &Engine{
		store:            store,
		catalog:          cat,
		notifier:         notifier,
		logger:           logger.With(logging.String(logging.FieldComponent, "diagnose")),
		staleThreshold:   staleThreshold,
		failureThreshold: failureThreshold,
		now:              time.Now,
	}
}

// Run applies both checks to every actionable row in the snapshot. The
// snapshot itself is never mutated; recoveries and escalations are issued as
// independent row store writes.
func (e *Engine) Run(ctx context.Context, rows []row.Row) Report {
	report := Report{}
	now := e.now().UTC()

	for i := range rows {
		current := rows[i]
		if current.Status.Terminal() {
			continue
		}
		logger := e.logger.With(
			logging.Int64(logging.FieldRowID, current.ID),
			logging.String(logging.FieldWorkflow, current.WorkflowType),
		)

		if warning := e.checkStructure(ctx, logger, current); warning != "" {
			report.Invalid++
			report.Warnings = append(report.Warnings, warning)
			continue
		}

		escalated := e.checkRepeatedFailure(ctx, logger, current, &report)
		if !escalated {
			e.checkStaleness(ctx, logger, current, now, &report)
		}
	}

	return report
}

// checkStructure flags rows whose workflow type or step is unknown to the
// catalog. Such rows are diagnosed, never executed.
func (e *Engine) checkStructure(ctx context.Context, logger *slog.Logger, current row.Row) string {
	if !e.catalog.Known(current.WorkflowType) {
		note := fmt.Sprintf("Unknown workflow type %q; manual correction required", current.WorkflowType)
		e.writeNote(ctx, logger, current.ID, note)
		logger.Warn("row has unknown workflow type")
		return fmt.Sprintf("row %d: unknown workflow type %q", current.ID, current.WorkflowType)
	}
	step := current.Status.Step
	if !e.catalog.HasStep(current.WorkflowType, step) {
		note := fmt.Sprintf("Status %q is not a step of workflow %q; manual correction required", step, current.WorkflowType)
		e.writeNote(ctx, logger, current.ID, note)
		logger.Warn("row status is not a catalog step", logging.String(logging.FieldStep, step))
		return fmt.Sprintf("row %d: status %q not in workflow %q", current.ID, step, current.WorkflowType)
	}
	return ""
}

// checkRepeatedFailure pins rows over the failure threshold to the
// supervisor state and notifies a human. Reports whether the row escalated.
func (e *Engine) checkRepeatedFailure(ctx context.Context, logger *slog.Logger, current row.Row, report *Report) bool {
	if current.ErrorCount < e.failureThreshold {
		return false
	}

	reason := fmt.Sprintf("Escalated after %d failed attempts", current.ErrorCount)
	if err := e.store.SetStatus(ctx, current.ID, row.Supervisor()); err != nil {
		logger.Error("failed to pin row to supervisor state", logging.Error(err))
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("row %d: escalation write failed: %v", current.ID, err))
		return false
	}
	e.writeNote(ctx, logger, current.ID, reason)

	logger.Warn("row escalated to supervisor",
		logging.Int("error_count", current.ErrorCount),
	)
	report.Escalated++
	report.Warnings = append(report.Warnings,
		fmt.Sprintf("row %d escalated after %d failures", current.ID, current.ErrorCount))

	if err := e.notifier.NotifyEscalation(ctx, notifications.Escalation{
		RowID:        current.ID,
		WorkflowType: current.WorkflowType,
		Status:       current.Status.String(),
		Error:        current.Notes,
		Suggestion:   reason,
	}); err != nil {
		logger.Warn("escalation notification failed", logging.Error(err))
	}
	return true
}

// checkStaleness reverts rows stuck in flight past the threshold back to
// their idle step so the next cycle can pick them up.
func (e *Engine) checkStaleness(ctx context.Context, logger *slog.Logger, current row.Row, now time.Time, report *Report) {
	if !current.Status.InFlightStatus() {
		return
	}
	if current.LastAttempted == nil {
		// No attempt timestamp to age against; leave the row for the next
		// pass rather than guess.
		return
	}
	age := now.Sub(current.LastAttempted.UTC())
	if age <= e.staleThreshold {
		return
	}

	step := current.Status.Step
	if err := e.store.SetStatus(ctx, current.ID, row.Idle(step)); err != nil {
		logger.Error("failed to revert stale row", logging.Error(err))
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("row %d: stale recovery write failed: %v", current.ID, err))
		return
	}
	e.writeNote(ctx, logger, current.ID,
		fmt.Sprintf("Auto-recovered after %s stuck at %q", age.Round(time.Minute), step))

	logger.Info("stale row recovered",
		logging.String(logging.FieldStep, step),
		logging.Duration("stuck_for", age),
	)
	report.Recovered++
}

func (e *Engine) writeNote(ctx context.Context, logger *slog.Logger, rowID int64, note string) {
	if err := e.store.SetNotes(ctx, rowID, note); err != nil {
		logger.Warn("failed to write row note", logging.Error(err))
	}
}
