package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRowID is the standardized structured logging key for row identifiers.
	FieldRowID = "row_id"
	// FieldWorker is the standardized structured logging key for worker identities.
	FieldWorker = "worker"
	// FieldStep is the standardized structured logging key for workflow step names.
	FieldStep = "step"
	// FieldWorkflow is the standardized structured logging key for workflow types.
	FieldWorkflow = "workflow"
	// FieldCycleID is the standardized structured logging key for pipeline cycle identifiers.
	FieldCycleID = "cycle_id"
	// FieldFunction is the standardized structured logging key for remote function names.
	FieldFunction = "function"
)

type contextKey string

const (
	rowIDKey   contextKey = "row_id"
	workerKey  contextKey = "worker"
	stepKey    contextKey = "step"
	cycleIDKey contextKey = "cycle_id"
)

// WithRowID annotates context with the row identifier.
func WithRowID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, rowIDKey, id)
}

// RowIDFromContext extracts the row identifier if present.
func RowIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(rowIDKey).(int64)
	return id, ok
}

// WithWorker annotates context with the worker identity.
func WithWorker(ctx context.Context, worker string) context.Context {
	if worker == "" {
		return ctx
	}
	return context.WithValue(ctx, workerKey, worker)
}

// WorkerFromContext extracts the worker identity if present.
func WorkerFromContext(ctx context.Context) (string, bool) {
	worker, ok := ctx.Value(workerKey).(string)
	return worker, ok && worker != ""
}

// WithStep annotates context with the workflow step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext extracts the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	step, ok := ctx.Value(stepKey).(string)
	return step, ok && step != ""
}

// WithCycleID annotates context with the pipeline cycle identifier.
func WithCycleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext extracts the cycle identifier if present.
func CycleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cycleIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := RowIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldRowID, id))
	}
	if worker, ok := WorkerFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldWorker, worker))
	}
	if step, ok := StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if id, ok := CycleIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCycleID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
